// Package permissions maps access levels and path grants onto the per-item
// capability set, and checks capabilities for explorer operations.
package permissions

import (
	"strings"

	"github.com/fruitsalade/explorer/pkg/models"
)

// Access levels, owner > write > read.
const (
	LevelRead  = "read"
	LevelWrite = "write"
	LevelOwner = "owner"
)

var levels = map[string]int{LevelRead: 1, LevelWrite: 2, LevelOwner: 3}

// ValidLevel reports whether level is a known access level.
func ValidLevel(level string) bool {
	_, ok := levels[level]
	return ok
}

// Satisfies checks if `has` satisfies `required`.
func Satisfies(has, required string) bool {
	return levels[has] >= levels[required]
}

// Capability names one entry of models.Permissions.
type Capability string

const (
	View       Capability = "view"
	Edit       Capability = "edit"
	Delete     Capability = "delete"
	Move       Capability = "move"
	Copy       Capability = "copy"
	Download   Capability = "download"
	Comment    Capability = "comment"
	ChangeIcon Capability = "change_icon"
)

// CapabilitiesFor returns the capability set granted by an access level.
// Unknown levels grant nothing.
func CapabilitiesFor(level string) models.Permissions {
	var p models.Permissions
	if Satisfies(level, LevelRead) && ValidLevel(level) {
		p.CanView = true
		p.CanDownload = true
		p.CanCopy = true
		p.CanComment = true
	}
	if Satisfies(level, LevelWrite) {
		p.CanEdit = true
		p.CanMove = true
		p.CanChangeIcon = true
	}
	if Satisfies(level, LevelOwner) {
		p.CanDelete = true
	}
	return p
}

// Has reports whether p grants c.
func Has(p models.Permissions, c Capability) bool {
	switch c {
	case View:
		return p.CanView
	case Edit:
		return p.CanEdit
	case Delete:
		return p.CanDelete
	case Move:
		return p.CanMove
	case Copy:
		return p.CanCopy
	case Download:
		return p.CanDownload
	case Comment:
		return p.CanComment
	case ChangeIcon:
		return p.CanChangeIcon
	}
	return false
}

// Allows reports whether every item grants c.
func Allows(items []*models.FolderItem, c Capability) bool {
	for _, item := range items {
		if !Has(item.Permissions, c) {
			return false
		}
	}
	return true
}

// Denied returns the names of the items that do not grant c.
func Denied(items []*models.FolderItem, c Capability) []string {
	var names []string
	for _, item := range items {
		if !Has(item.Permissions, c) {
			names = append(names, item.Name)
		}
	}
	return names
}

// PathSegments returns all path prefixes from most specific to least.
// "/a/b/c" -> ["/a/b/c", "/a/b", "/a", "/"]
func PathSegments(path string) []string {
	segments := []string{path}
	for {
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			if path != "/" {
				segments = append(segments, "/")
			}
			break
		}
		path = path[:idx]
		segments = append(segments, path)
	}
	return segments
}

// Resolver computes the capability set of an item at a path.
type Resolver interface {
	Resolve(item *models.FolderItem) models.Permissions
}

// AllowAll grants every capability on every item.
type AllowAll struct{}

// Resolve implements Resolver.
func (AllowAll) Resolve(*models.FolderItem) models.Permissions {
	return models.AllPermissions()
}

// PathGrants maps paths to access levels. An item inherits the level of the
// nearest granted ancestor; items under no grant get no capabilities.
type PathGrants map[string]string

// Resolve implements Resolver.
func (g PathGrants) Resolve(item *models.FolderItem) models.Permissions {
	path := item.Path
	if !item.IsFolder() {
		path = strings.TrimSuffix(path, "/") + "/" + item.Name
	}
	for _, seg := range PathSegments(path) {
		if level, ok := g[seg]; ok {
			return CapabilitiesFor(level)
		}
	}
	return models.Permissions{}
}

// Operation names a user-facing explorer action.
type Operation string

const (
	OpRename     Operation = "rename"
	OpDelete     Operation = "delete"
	OpComment    Operation = "comment"
	OpDetails    Operation = "details"
	OpChangeIcon Operation = "change-icon"
	OpNewFolder  Operation = "new-folder"
	OpNewFile    Operation = "new-file"
	OpMove       Operation = "move"
	OpCopy       Operation = "copy"
)

var required = map[Operation]Capability{
	OpRename:     Edit,
	OpDelete:     Delete,
	OpComment:    Comment,
	OpDetails:    View,
	OpChangeIcon: ChangeIcon,
	OpNewFolder:  Edit,
	OpNewFile:    Edit,
	OpMove:       Move,
	OpCopy:       Copy,
}

// Required returns the capability an operation needs on its targets.
// Unknown operations need View.
func Required(op Operation) Capability {
	if c, ok := required[op]; ok {
		return c
	}
	return View
}
