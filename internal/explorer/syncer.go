package explorer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fruitsalade/explorer/internal/permissions"
	"github.com/fruitsalade/explorer/pkg/client"
	"github.com/fruitsalade/explorer/pkg/models"
	"github.com/fruitsalade/explorer/pkg/protocol"
	"github.com/fruitsalade/explorer/pkg/tree"
)

// Page is one page of the flat listing.
type Page struct {
	Items      []*models.FolderItem
	Page       int
	PageSize   int
	TotalCount int
}

// FilePayload describes a file to create. The gateway stores files as user
// records, so a file is named after the person it describes.
type FilePayload struct {
	FirstName string
	LastName  string
	Email     string
}

// SyncerConfig holds Syncer configuration.
type SyncerConfig struct {
	Resolver permissions.Resolver
	PageSize int
	Logger   *zap.Logger
}

// Syncer turns explorer intents into gateway calls and gateway records into
// normalized items. It holds no view state.
type Syncer struct {
	client   *client.Client
	resolver permissions.Resolver
	pageSize int
	logger   *zap.Logger
}

// NewSyncer creates a Syncer over c.
func NewSyncer(c *client.Client, cfg SyncerConfig) *Syncer {
	if cfg.Resolver == nil {
		cfg.Resolver = permissions.AllowAll{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Syncer{
		client:   c,
		resolver: cfg.Resolver,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger,
	}
}

// PageSize returns the flat listing page size.
func (s *Syncer) PageSize() int {
	return s.pageSize
}

// FetchChildren lists the items directly under path, folders first.
func (s *Syncer) FetchChildren(ctx context.Context, path string) ([]*models.FolderItem, error) {
	resp, err := s.client.FolderContents(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return s.normalize(path, resp.Folders, resp.Files), nil
}

// FetchPage fetches one page of the flat listing of path. Pages start at 1.
func (s *Syncer) FetchPage(ctx context.Context, path string, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	resp, err := s.client.FilesAndFolders(ctx, path, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list %s page %d: %w", path, page, err)
	}
	p := &Page{
		Items:      s.normalize(path, resp.Folders, resp.Files),
		Page:       resp.Page,
		PageSize:   resp.PageSize,
		TotalCount: resp.TotalCount,
	}
	if p.Page == 0 {
		p.Page = page
	}
	if p.PageSize == 0 {
		p.PageSize = s.pageSize
	}
	return p, nil
}

// Search finds the items under path matching keyword.
func (s *Syncer) Search(ctx context.Context, path, keyword string) ([]*models.FolderItem, error) {
	resp, err := s.client.Search(ctx, path, keyword)
	if err != nil {
		return nil, fmt.Errorf("search %q in %s: %w", keyword, path, err)
	}
	return s.normalize(path, resp.Folders, resp.Files), nil
}

// DestinationFolders lists the folders under path for a move/copy picker.
func (s *Syncer) DestinationFolders(ctx context.Context, path string) ([]*models.FolderItem, error) {
	records, err := s.client.OnlyFolders(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list folders of %s: %w", path, err)
	}
	return s.normalize(path, records, nil), nil
}

// FolderDetail loads the metadata of the folder at path.
func (s *Syncer) FolderDetail(ctx context.Context, path string) (*models.FolderDetail, error) {
	resp, err := s.client.FolderDetail(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("details of %s: %w", path, err)
	}
	d := &models.FolderDetail{
		Path:       resp.Path,
		Name:       resp.Name,
		Comment:    resp.Comment,
		Icon:       resp.Icon,
		CreateDate: resp.CreateDate,
		UpdateDate: resp.UpdateDate,
	}
	if d.Path == "" {
		d.Path = path
	}
	return d, nil
}

// Rename renames a folder by path or a file by id.
func (s *Syncer) Rename(ctx context.Context, item *models.FolderItem, newName string) error {
	var err error
	if item.IsFolder() {
		err = s.client.RenameFolder(ctx, protocol.RenameFolderRequest{
			CurrentPath: item.Path,
			NewName:     newName,
		})
	} else {
		err = s.client.RenameFile(ctx, protocol.RenameFileRequest{
			FolderPath:  item.Path,
			FileID:      item.ID,
			NewFileName: newName,
		})
	}
	if err != nil {
		return fmt.Errorf("rename %s: %w", item.Name, err)
	}
	s.logger.Info("renamed", zap.String("from", item.Name), zap.String("to", newName))
	return nil
}

// DeleteMany deletes items. The flat view addresses files relative to
// currentPath; the tree and search views address every item by its own path.
func (s *Syncer) DeleteMany(ctx context.Context, mode models.ViewMode, currentPath string, items []*models.FolderItem) error {
	folders, files := partition(items)
	var err error
	if mode == models.ModeFlat {
		req := protocol.BulkDeleteRequest{
			FolderPaths:        folderPaths(folders),
			FileIDs:            fileIDs(files),
			FolderPathForFiles: currentPath,
		}
		err = s.client.BulkDelete(ctx, req)
	} else {
		req := protocol.DeleteMultiSourceRequest{
			FolderPathsToDelete: folderPaths(folders),
			FilesToDelete:       fileRefs(files),
		}
		err = s.client.DeleteFromMultipleSources(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("delete %d items: %w", len(items), err)
	}
	s.logger.Info("deleted items",
		zap.Int("folders", len(folders)),
		zap.Int("files", len(files)))
	return nil
}

// MoveCopy moves or copies items into destinationPath. The flat view sends
// the same-parent shape rooted at currentPath; the other views send the
// multi-source shape.
func (s *Syncer) MoveCopy(ctx context.Context, mode models.ViewMode, currentPath string, items []*models.FolderItem, destinationPath string, action models.Action) error {
	folders, files := partition(items)
	isCopy := action == models.ActionCopy
	var err error
	if mode == models.ModeFlat {
		names := make([]string, 0, len(folders))
		for _, f := range folders {
			names = append(names, f.Name)
		}
		err = s.client.MoveFoldersAndFiles(ctx, protocol.MoveFoldersAndFilesRequest{
			SourcePath:      currentPath,
			FolderNames:     names,
			FileIDs:         fileIDs(files),
			DestinationPath: destinationPath,
			IsCopy:          isCopy,
		})
	} else {
		err = s.client.MoveFromMultipleSources(ctx, protocol.MoveMultiSourceRequest{
			FolderPaths:     folderPaths(folders),
			Files:           fileRefs(files),
			DestinationPath: destinationPath,
			IsCopy:          isCopy,
		})
	}
	if err != nil {
		return fmt.Errorf("%s %d items to %s: %w", action, len(items), destinationPath, err)
	}
	s.logger.Info("relocated items",
		zap.String("action", string(action)),
		zap.Int("count", len(items)),
		zap.String("destination", destinationPath))
	return nil
}

// CreateFolder creates a folder under parentPath and returns it as an item.
func (s *Syncer) CreateFolder(ctx context.Context, name, icon, parentPath string) (*models.FolderItem, error) {
	rec, err := s.client.CreateFolder(ctx, protocol.CreateFolderRequest{
		Name:       name,
		Icon:       icon,
		ParentPath: parentPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create folder %s: %w", name, err)
	}
	if rec.Name == "" {
		rec.Name = name
	}
	if rec.Icon == "" {
		rec.Icon = icon
	}
	return s.folderItem(parentPath, *rec), nil
}

// CreateFile creates a file in targetPath and returns it as an item.
func (s *Syncer) CreateFile(ctx context.Context, payload FilePayload, targetPath string) (*models.FolderItem, error) {
	rec, err := s.client.CreateFile(ctx, protocol.CreateFileRequest{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Email:      payload.Email,
		FolderPath: targetPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(payload.FirstName + " " + payload.LastName)
	}
	return s.fileItem(targetPath, *rec), nil
}

// AddComment attaches a comment to the folder at path.
func (s *Syncer) AddComment(ctx context.Context, path, text string) error {
	if err := s.client.AddComment(ctx, protocol.AddCommentRequest{Path: path, Comment: text}); err != nil {
		return fmt.Errorf("comment on %s: %w", path, err)
	}
	return nil
}

// ChangeIcon sets the icon of the folder at path.
func (s *Syncer) ChangeIcon(ctx context.Context, path, icon string) error {
	if err := s.client.ChangeIcon(ctx, protocol.ChangeIconRequest{Path: path, Icon: icon}); err != nil {
		return fmt.Errorf("change icon of %s: %w", path, err)
	}
	return nil
}

func (s *Syncer) normalize(parent string, folders []protocol.FolderRecord, files []protocol.FileRecord) []*models.FolderItem {
	items := make([]*models.FolderItem, 0, len(folders)+len(files))
	for _, rec := range folders {
		items = append(items, s.folderItem(parent, rec))
	}
	for _, rec := range files {
		items = append(items, s.fileItem(parent, rec))
	}
	return items
}

// folderItem gives a folder record a fresh id; the gateway has none.
func (s *Syncer) folderItem(parent string, rec protocol.FolderRecord) *models.FolderItem {
	item := &models.FolderItem{
		ID:         tree.NewID(),
		Name:       rec.Name,
		Type:       models.TypeFolder,
		Path:       rec.Path,
		Icon:       rec.Icon,
		CreateDate: rec.CreateDate,
		UpdateDate: rec.UpdateDate,
	}
	if item.Path == "" {
		item.Path = tree.BuildChildPath(parent, rec.Name)
	}
	item.Permissions = s.resolver.Resolve(item)
	return item
}

func (s *Syncer) fileItem(parent string, rec protocol.FileRecord) *models.FolderItem {
	item := &models.FolderItem{
		ID:         rec.ID,
		Name:       rec.Name,
		Type:       models.TypeFile,
		Path:       rec.FolderPath,
		CreateDate: rec.CreateDate,
		UpdateDate: rec.UpdateDate,
	}
	if item.Path == "" {
		item.Path = parent
	}
	if item.ID == "" {
		item.ID = tree.NewID()
	}
	item.Permissions = s.resolver.Resolve(item)
	return item
}

func partition(items []*models.FolderItem) (folders, files []*models.FolderItem) {
	for _, item := range items {
		if item.IsFolder() {
			folders = append(folders, item)
		} else {
			files = append(files, item)
		}
	}
	return folders, files
}

func folderPaths(folders []*models.FolderItem) []string {
	paths := make([]string, 0, len(folders))
	for _, f := range folders {
		paths = append(paths, f.Path)
	}
	return paths
}

func fileIDs(files []*models.FolderItem) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids
}

func fileRefs(files []*models.FolderItem) []protocol.FileRef {
	refs := make([]protocol.FileRef, 0, len(files))
	for _, f := range files {
		refs = append(refs, protocol.FileRef{FileID: f.ID, FolderPath: f.Path})
	}
	return refs
}
