// Package tree provides the pure mutators and lookups over an item forest.
//
// Every mutator returns a new forest and leaves its input untouched. Subtrees
// that a mutation does not reach are shared between input and output, so
// callers must treat nodes as immutable and go through these functions.
package tree

import (
	"strings"

	"github.com/google/uuid"

	"github.com/fruitsalade/explorer/pkg/models"
)

// NewID generates identifiers for synthesized nodes.
var NewID = func() string {
	return uuid.NewString()
}

// FindByPath returns the folder whose path equals path (recursive).
// Files share their parent's path and are never matched.
func FindByPath(forest []*models.FolderItem, path string) *models.FolderItem {
	for _, item := range forest {
		if !item.IsFolder() {
			continue
		}
		if item.Path == path {
			return item
		}
		if found := FindByPath(item.Children, path); found != nil {
			return found
		}
	}
	return nil
}

// FindByID finds a node by its ID (recursive).
func FindByID(forest []*models.FolderItem, id string) *models.FolderItem {
	for _, item := range forest {
		if item.ID == id {
			return item
		}
		if found := FindByID(item.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// CountNodes counts all nodes in a forest.
func CountNodes(forest []*models.FolderItem) int {
	count := 0
	for _, item := range forest {
		count += 1 + CountNodes(item.Children)
	}
	return count
}

// BuildChildPath constructs a child path from parent + name.
func BuildChildPath(parentPath, name string) string {
	return strings.TrimSuffix(parentPath, "/") + "/" + name
}

// ParentPath returns the path of the folder containing path.
func ParentPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// Flatten returns all nodes in a flat map keyed by ID.
func Flatten(forest []*models.FolderItem) map[string]*models.FolderItem {
	result := make(map[string]*models.FolderItem)
	Walk(forest, func(item *models.FolderItem, _ int) bool {
		result[item.ID] = item
		return true
	})
	return result
}

// Walk visits nodes depth-first, parents before children. Returning false
// from fn skips the node's children.
func Walk(forest []*models.FolderItem, fn func(item *models.FolderItem, depth int) bool) {
	walk(forest, 0, fn)
}

func walk(forest []*models.FolderItem, depth int, fn func(*models.FolderItem, int) bool) {
	for _, item := range forest {
		if fn(item, depth) {
			walk(item.Children, depth+1, fn)
		}
	}
}

// IDs returns the set of ids of items.
func IDs(items []*models.FolderItem) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item.ID] = struct{}{}
	}
	return set
}

// DeleteItems removes every node whose id appears in toDelete, at any depth.
// Ids that are not in the forest are ignored.
func DeleteItems(forest, toDelete []*models.FolderItem) []*models.FolderItem {
	if forest == nil {
		return nil
	}
	return deleteByID(forest, IDs(toDelete))
}

func deleteByID(items []*models.FolderItem, ids map[string]struct{}) []*models.FolderItem {
	out := make([]*models.FolderItem, 0, len(items))
	for _, item := range items {
		if _, gone := ids[item.ID]; gone {
			continue
		}
		if item.Children != nil {
			cp := *item
			cp.Children = deleteByID(item.Children, ids)
			item = &cp
		}
		out = append(out, item)
	}
	return out
}

// UpdateItem replaces the node with the given id by replacement. The forest
// is returned unchanged when no node matches.
func UpdateItem(forest []*models.FolderItem, id string, replacement *models.FolderItem) []*models.FolderItem {
	out, _ := updateByID(forest, id, func(*models.FolderItem) *models.FolderItem {
		return replacement
	})
	return out
}

// UpdateFunc replaces the node with the given id by fn(node).
func UpdateFunc(forest []*models.FolderItem, id string, fn func(*models.FolderItem) *models.FolderItem) ([]*models.FolderItem, bool) {
	return updateByID(forest, id, fn)
}

func updateByID(items []*models.FolderItem, id string, fn func(*models.FolderItem) *models.FolderItem) ([]*models.FolderItem, bool) {
	for i, item := range items {
		if item.ID == id {
			return replaceAt(items, i, fn(item)), true
		}
		if item.Children == nil {
			continue
		}
		if children, ok := updateByID(item.Children, id, fn); ok {
			cp := *item
			cp.Children = children
			return replaceAt(items, i, &cp), true
		}
	}
	return items, false
}

func replaceAt(items []*models.FolderItem, i int, item *models.FolderItem) []*models.FolderItem {
	out := make([]*models.FolderItem, len(items))
	copy(out, items)
	out[i] = item
	return out
}

// SetChildren stores the loaded children of a folder and marks it expanded.
func SetChildren(forest []*models.FolderItem, folderID string, children []*models.FolderItem) ([]*models.FolderItem, bool) {
	return updateByID(forest, folderID, func(item *models.FolderItem) *models.FolderItem {
		cp := *item
		cp.Children = children
		cp.IsExpanded = true
		return &cp
	})
}

// SetExpanded toggles the transient expansion flag of a folder.
func SetExpanded(forest []*models.FolderItem, folderID string, expanded bool) ([]*models.FolderItem, bool) {
	return updateByID(forest, folderID, func(item *models.FolderItem) *models.FolderItem {
		cp := *item
		cp.IsExpanded = expanded
		return &cp
	})
}

// Rebase deep-copies item as if it lived in the folder at parentPath.
// A folder's path becomes parentPath/name and a file's path becomes
// parentPath; descendants are recomputed from their new parent.
func Rebase(item *models.FolderItem, parentPath string) *models.FolderItem {
	cp := *item
	if item.IsFolder() {
		cp.Path = BuildChildPath(parentPath, item.Name)
	} else {
		cp.Path = parentPath
	}
	if item.Children != nil {
		cp.Children = make([]*models.FolderItem, len(item.Children))
		for i, child := range item.Children {
			cp.Children[i] = Rebase(child, cp.Path)
		}
	}
	return &cp
}

// Rename returns a copy of item carrying newName. A renamed folder's path
// and every descendant path are rewritten.
func Rename(item *models.FolderItem, newName string) *models.FolderItem {
	cp := *item
	cp.Name = newName
	if !item.IsFolder() {
		return &cp
	}
	return Rebase(&cp, ParentPath(item.Path))
}

// MoveItems relocates (ActionMove) or duplicates (ActionCopy) items under
// destinationPath. Moved nodes keep their ids; copies get fresh ones.
//
// Clones land at the top level when destinationPath equals currentPath,
// otherwise in the folder whose path equals destinationPath. The boolean is
// false when no such folder is loaded; moved items are then absent from the
// returned forest.
func MoveItems(forest, moving []*models.FolderItem, destinationPath, currentPath string, action models.Action) ([]*models.FolderItem, bool) {
	moving = Roots(moving)
	base := forest
	if action == models.ActionMove {
		base = DeleteItems(forest, moving)
	}

	clones := make([]*models.FolderItem, 0, len(moving))
	for _, item := range moving {
		clone := Rebase(item, destinationPath)
		if action == models.ActionCopy {
			reassignIDs(clone)
		}
		clones = append(clones, clone)
	}

	return InsertItems(base, destinationPath, currentPath, clones, false)
}

// Roots drops every item that descends from another item of the set. A
// subtree travels with its folder, so its members must not be moved twice.
func Roots(items []*models.FolderItem) []*models.FolderItem {
	nested := make(map[string]struct{})
	for _, item := range items {
		Walk(item.Children, func(child *models.FolderItem, _ int) bool {
			nested[child.ID] = struct{}{}
			return true
		})
	}
	if len(nested) == 0 {
		return items
	}
	out := make([]*models.FolderItem, 0, len(items))
	for _, item := range items {
		if _, ok := nested[item.ID]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// ContainsFile reports whether any of items, or any loaded descendant, is a
// file.
func ContainsFile(items []*models.FolderItem) bool {
	found := false
	Walk(items, func(item *models.FolderItem, _ int) bool {
		if !item.IsFolder() {
			found = true
		}
		return !found
	})
	return found
}

func reassignIDs(item *models.FolderItem) {
	item.ID = NewID()
	for _, child := range item.Children {
		reassignIDs(child)
	}
}

// InsertItems adds items to the top level when destinationPath equals
// currentPath, otherwise to the children of the folder at destinationPath.
// With prepend the items go first, otherwise last.
func InsertItems(forest []*models.FolderItem, destinationPath, currentPath string, items []*models.FolderItem, prepend bool) ([]*models.FolderItem, bool) {
	if destinationPath == currentPath {
		return join(forest, items, prepend), true
	}
	return insertInto(forest, destinationPath, items, prepend)
}

func insertInto(nodes []*models.FolderItem, destinationPath string, items []*models.FolderItem, prepend bool) ([]*models.FolderItem, bool) {
	for i, node := range nodes {
		if !node.IsFolder() {
			continue
		}
		if node.Path == destinationPath {
			cp := *node
			cp.Children = join(node.Children, items, prepend)
			return replaceAt(nodes, i, &cp), true
		}
		if children, ok := insertInto(node.Children, destinationPath, items, prepend); ok {
			cp := *node
			cp.Children = children
			return replaceAt(nodes, i, &cp), true
		}
	}
	return nodes, false
}

func join(existing, items []*models.FolderItem, prepend bool) []*models.FolderItem {
	out := make([]*models.FolderItem, 0, len(existing)+len(items))
	if prepend {
		out = append(out, items...)
		return append(out, existing...)
	}
	out = append(out, existing...)
	return append(out, items...)
}
