package client

import (
	"context"

	"github.com/fruitsalade/explorer/pkg/protocol"
)

// FolderDetail fetches folder metadata (comment, timestamps).
func (c *Client) FolderDetail(ctx context.Context, path string) (*protocol.FolderDetailResponse, error) {
	var out protocol.FolderDetailResponse
	if err := c.GetJSON(ctx, protocol.PathFolderDetail, protocol.Query{Path: path}.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OnlyFolders lists the subfolders of path, for destination pickers.
func (c *Client) OnlyFolders(ctx context.Context, path string) ([]protocol.FolderRecord, error) {
	var out []protocol.FolderRecord
	if err := c.GetJSON(ctx, protocol.PathOnlyFolders, protocol.Query{Path: path}.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FolderContents lists the folders and files directly under path.
func (c *Client) FolderContents(ctx context.Context, path string) (*protocol.ContentsResponse, error) {
	var out protocol.ContentsResponse
	if err := c.GetJSON(ctx, protocol.PathFolderContents, protocol.Query{Path: path}.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FilesAndFolders fetches one page of the flat listing of path.
func (c *Client) FilesAndFolders(ctx context.Context, path string, page, pageSize int) (*protocol.PageResponse, error) {
	var out protocol.PageResponse
	q := protocol.Query{Path: path, Page: page, PageSize: pageSize}
	if err := c.GetJSON(ctx, protocol.PathFilesAndFolders, q.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search finds folders and files under path matching keyword.
func (c *Client) Search(ctx context.Context, path, keyword string) (*protocol.ContentsResponse, error) {
	var out protocol.ContentsResponse
	q := protocol.Query{Path: path, Keyword: keyword}
	if err := c.GetJSON(ctx, protocol.PathSearch, q.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameFolder renames the folder at req.CurrentPath.
func (c *Client) RenameFolder(ctx context.Context, req protocol.RenameFolderRequest) error {
	return c.post(ctx, protocol.PathRenameFolder, req, nil)
}

// RenameFile renames a file within its folder.
func (c *Client) RenameFile(ctx context.Context, req protocol.RenameFileRequest) error {
	return c.post(ctx, protocol.PathRenameFile, req, nil)
}

// DeleteFromMultipleSources deletes folders and files addressed by path.
func (c *Client) DeleteFromMultipleSources(ctx context.Context, req protocol.DeleteMultiSourceRequest) error {
	return c.post(ctx, protocol.PathDeleteMultiSource, req, nil)
}

// BulkDelete deletes folders and files that share one parent folder.
func (c *Client) BulkDelete(ctx context.Context, req protocol.BulkDeleteRequest) error {
	return c.post(ctx, protocol.PathBulkDelete, req, nil)
}

// CreateFolder creates a folder and returns the server's record.
func (c *Client) CreateFolder(ctx context.Context, req protocol.CreateFolderRequest) (*protocol.FolderRecord, error) {
	var out protocol.FolderRecord
	if err := c.post(ctx, protocol.PathCreateFolder, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFile creates a file record and returns it.
func (c *Client) CreateFile(ctx context.Context, req protocol.CreateFileRequest) (*protocol.FileRecord, error) {
	var out protocol.FileRecord
	if err := c.post(ctx, protocol.PathCreateFile, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment attaches a comment to a folder.
func (c *Client) AddComment(ctx context.Context, req protocol.AddCommentRequest) error {
	return c.post(ctx, protocol.PathAddComment, req, nil)
}

// ChangeIcon sets a folder's icon.
func (c *Client) ChangeIcon(ctx context.Context, req protocol.ChangeIconRequest) error {
	return c.post(ctx, protocol.PathChangeIcon, req, nil)
}

// MoveFromMultipleSources moves or copies items from any parents.
func (c *Client) MoveFromMultipleSources(ctx context.Context, req protocol.MoveMultiSourceRequest) error {
	return c.post(ctx, protocol.PathMoveMultiSource, req, nil)
}

// MoveFoldersAndFiles moves or copies items sharing one parent.
func (c *Client) MoveFoldersAndFiles(ctx context.Context, req protocol.MoveFoldersAndFilesRequest) error {
	return c.post(ctx, protocol.PathMoveFoldersAndFiles, req, nil)
}

func (c *Client) post(ctx context.Context, path string, req, out any) error {
	if err := protocol.Validate(req); err != nil {
		return err
	}
	return c.PostJSON(ctx, path, req, out)
}
