// Package models contains the data types shared by the explorer packages.
package models

import "time"

// ItemType tags a FolderItem as a folder or a file.
type ItemType string

const (
	TypeFolder ItemType = "folder"
	TypeFile   ItemType = "file"
)

// Permissions is the per-item capability set.
type Permissions struct {
	CanView       bool `json:"canView"`
	CanEdit       bool `json:"canEdit"`
	CanDelete     bool `json:"canDelete"`
	CanMove       bool `json:"canMove"`
	CanCopy       bool `json:"canCopy"`
	CanDownload   bool `json:"canDownload"`
	CanComment    bool `json:"canComment"`
	CanChangeIcon bool `json:"canChangeIcon"`
}

// AllPermissions grants every capability.
func AllPermissions() Permissions {
	return Permissions{
		CanView:       true,
		CanEdit:       true,
		CanDelete:     true,
		CanMove:       true,
		CanCopy:       true,
		CanDownload:   true,
		CanComment:    true,
		CanChangeIcon: true,
	}
}

// FolderItem represents a folder or a file in the virtual filesystem.
//
// For folders Path is the folder's own path. For files Path is the path of
// the containing folder.
type FolderItem struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Type        ItemType      `json:"type"`
	Path        string        `json:"path"`
	Icon        string        `json:"icon,omitempty"`
	Children    []*FolderItem `json:"children,omitempty"`
	Permissions Permissions   `json:"permissions"`
	CreateDate  time.Time     `json:"createDate"`
	UpdateDate  time.Time     `json:"updateDate"`
	IsExpanded  bool          `json:"-"`
}

// IsFolder reports whether the item is a folder.
func (f *FolderItem) IsFolder() bool {
	return f.Type == TypeFolder
}

// Action selects between moving and copying items.
type Action string

const (
	ActionMove Action = "move"
	ActionCopy Action = "copy"
)

// ViewMode is the way the explorer materializes the current folder.
type ViewMode string

const (
	// ModeTree lazily expands the hierarchy and mutates it locally.
	ModeTree ViewMode = "tree"
	// ModeFlat shows a single server-paginated level and always refetches.
	ModeFlat ViewMode = "flat"
	// ModeSearch shows an ephemeral result set and refetches via search.
	ModeSearch ViewMode = "search"
)

// ParseViewMode returns the mode named by s.
func ParseViewMode(s string) (ViewMode, bool) {
	switch ViewMode(s) {
	case ModeTree, ModeFlat, ModeSearch:
		return ViewMode(s), true
	}
	return "", false
}

// FolderDetail holds folder metadata shown in the details dialog.
type FolderDetail struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Comment    string    `json:"comment"`
	Icon       string    `json:"icon,omitempty"`
	CreateDate time.Time `json:"createDate"`
	UpdateDate time.Time `json:"updateDate"`
}
