// Package protocol defines the gateway's request/response types.
package protocol

import "time"

// Endpoint paths.
const (
	PathFolderDetail        = "/UserFolders/GetFolderDetail"
	PathOnlyFolders         = "/UserFolders/GetOnlyFolders"
	PathFolderContents      = "/UserFolders/GetFolderContents"
	PathFilesAndFolders     = "/UserFiles/GetFilesAndFolders"
	PathRenameFolder        = "/UserFolders/RenameFolder"
	PathRenameFile          = "/UserFiles/RenameFile"
	PathDeleteMultiSource   = "/UserFiles/DeleteFromMultipleSources"
	PathBulkDelete          = "/api/UserFiles/BulkDeleteFoldersAndFiles"
	PathCreateFolder        = "/UserFolders/CreateFolder"
	PathCreateFile          = "/UserFiles/CreateUser"
	PathAddComment          = "/UserFolders/AddComment"
	PathChangeIcon          = "/UserFolders/ChangeIcon"
	PathMoveMultiSource     = "/UserFiles/MoveFromMultipleSources"
	PathMoveFoldersAndFiles = "/UserFiles/MoveFoldersAndFiles"
	PathSearch              = "/UserFolders/SearchInFolder"
	PathHealth              = "/health"
)

// ErrorResponse is the error envelope of non-2xx responses.
type ErrorResponse struct {
	Message string `json:"message"`
}

// FolderRecord is a folder as the server reports it. Folders carry no id.
type FolderRecord struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Icon       string    `json:"icon,omitempty"`
	CreateDate time.Time `json:"createDate"`
	UpdateDate time.Time `json:"updateDate"`
}

// FileRecord is a file as the server reports it.
type FileRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FolderPath string    `json:"folderPath"`
	CreateDate time.Time `json:"createDate"`
	UpdateDate time.Time `json:"updateDate"`
}

// ContentsResponse is returned by GET /UserFolders/GetFolderContents and
// GET /UserFolders/SearchInFolder.
type ContentsResponse struct {
	Folders []FolderRecord `json:"folders"`
	Files   []FileRecord   `json:"files"`
}

// PageResponse is returned by GET /UserFiles/GetFilesAndFolders.
type PageResponse struct {
	Folders    []FolderRecord `json:"folders"`
	Files      []FileRecord   `json:"files"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalCount int            `json:"totalCount"`
}

// FolderDetailResponse is returned by GET /UserFolders/GetFolderDetail.
type FolderDetailResponse struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Comment    string    `json:"comment"`
	Icon       string    `json:"icon,omitempty"`
	CreateDate time.Time `json:"createDate"`
	UpdateDate time.Time `json:"updateDate"`
}

// RenameFolderRequest is the body for POST /UserFolders/RenameFolder.
type RenameFolderRequest struct {
	CurrentPath string `json:"currentPath" validate:"required,startswith=/"`
	NewName     string `json:"newName" validate:"required,excludes=/,max=255"`
}

// RenameFileRequest is the body for POST /UserFiles/RenameFile.
type RenameFileRequest struct {
	FolderPath  string `json:"folderPath" validate:"required,startswith=/"`
	FileID      string `json:"fileId" validate:"required"`
	NewFileName string `json:"newFileName" validate:"required,excludes=/,max=255"`
}

// FileRef addresses a file by id within its folder.
type FileRef struct {
	FileID     string `json:"fileId" validate:"required"`
	FolderPath string `json:"folderPath" validate:"required,startswith=/"`
}

// DeleteMultiSourceRequest is the body for POST /UserFiles/DeleteFromMultipleSources.
type DeleteMultiSourceRequest struct {
	FolderPathsToDelete []string  `json:"folderPathsToDelete" validate:"dive,required,startswith=/"`
	FilesToDelete       []FileRef `json:"filesToDelete" validate:"dive"`
}

// BulkDeleteRequest is the body for POST /api/UserFiles/BulkDeleteFoldersAndFiles.
type BulkDeleteRequest struct {
	FolderPaths        []string `json:"folderPaths" validate:"dive,required,startswith=/"`
	FileIDs            []string `json:"fileIds" validate:"dive,required"`
	FolderPathForFiles string   `json:"folderPathForFiles" validate:"required,startswith=/"`
}

// CreateFolderRequest is the body for POST /UserFolders/CreateFolder.
type CreateFolderRequest struct {
	Name       string `json:"name" validate:"required,excludes=/,max=255"`
	Icon       string `json:"icon"`
	ParentPath string `json:"parentPath" validate:"required,startswith=/"`
}

// CreateFileRequest is the body for POST /UserFiles/CreateUser. The gateway
// models files as user records.
type CreateFileRequest struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FolderPath string `json:"folderPath" validate:"required,startswith=/"`
}

// AddCommentRequest is the body for POST /UserFolders/AddComment.
type AddCommentRequest struct {
	Path    string `json:"path" validate:"required,startswith=/"`
	Comment string `json:"comment" validate:"required"`
}

// ChangeIconRequest is the body for POST /UserFolders/ChangeIcon.
type ChangeIconRequest struct {
	Path string `json:"path" validate:"required,startswith=/"`
	Icon string `json:"icon" validate:"required"`
}

// MoveMultiSourceRequest is the body for POST /UserFiles/MoveFromMultipleSources.
// Sources may live under different parents.
type MoveMultiSourceRequest struct {
	FolderPaths     []string  `json:"folderPaths" validate:"dive,required,startswith=/"`
	Files           []FileRef `json:"files" validate:"dive"`
	DestinationPath string    `json:"destinationPath" validate:"required,startswith=/"`
	IsCopy          bool      `json:"isCopy"`
}

// MoveFoldersAndFilesRequest is the body for POST /UserFiles/MoveFoldersAndFiles.
// All sources share SourcePath as their parent.
type MoveFoldersAndFilesRequest struct {
	SourcePath      string   `json:"sourcePath" validate:"required,startswith=/"`
	FolderNames     []string `json:"folderNames" validate:"dive,required"`
	FileIDs         []string `json:"fileIds" validate:"dive,required"`
	DestinationPath string   `json:"destinationPath" validate:"required,startswith=/"`
	IsCopy          bool     `json:"isCopy"`
}
