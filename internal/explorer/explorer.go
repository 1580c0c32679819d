// Package explorer holds the folder explorer's view state, the adapter that
// syncs it with the gateway, and the dialog orchestrator that drives every
// mutation.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fruitsalade/explorer/internal/metrics"
	"github.com/fruitsalade/explorer/pkg/models"
	"github.com/fruitsalade/explorer/pkg/tree"
)

var (
	// ErrItemNotFound is returned when an id is not in the forest.
	ErrItemNotFound = errors.New("item not found")
	// ErrNotFolder is returned when a folder operation targets a file.
	ErrNotFolder = errors.New("not a folder")
	// ErrWrongMode is returned for operations the current view mode lacks.
	ErrWrongMode = errors.New("not available in this view mode")
	// ErrEmptyKeyword is returned when a search has nothing to look for.
	ErrEmptyKeyword = errors.New("search keyword is empty")
)

// State is a snapshot of the explorer. Forest nodes are shared with the
// explorer and must not be modified.
type State struct {
	Forest      []*models.FolderItem
	CurrentPath string
	HomePath    string
	Mode        models.ViewMode
	Keyword     string
	Page        int
	TotalCount  int
	Selection   []*models.FolderItem
}

// Config holds Explorer configuration.
type Config struct {
	HomePath string
	Mode     models.ViewMode
	Logger   *zap.Logger
}

// Explorer owns the item forest. The forest is only ever replaced as a
// whole, with new versions built by the tree package.
type Explorer struct {
	syncer *Syncer
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// New creates an Explorer positioned at the home path. Nothing is loaded
// until Navigate or Refresh. Search mode needs a keyword, so an explorer
// configured for it starts in tree mode until Search is called.
func New(syncer *Syncer, cfg Config) *Explorer {
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	if cfg.Mode == "" || cfg.Mode == models.ModeSearch {
		cfg.Mode = models.ModeTree
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Explorer{
		syncer: syncer,
		logger: cfg.Logger,
		state: State{
			CurrentPath: cfg.HomePath,
			HomePath:    cfg.HomePath,
			Mode:        cfg.Mode,
			Page:        1,
		},
	}
}

// Syncer returns the adapter the explorer loads through.
func (e *Explorer) Syncer() *Syncer {
	return e.syncer
}

// Snapshot returns the current state.
func (e *Explorer) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	s.Selection = append([]*models.FolderItem(nil), e.state.Selection...)
	return s
}

// Navigate makes path the current folder and loads it in the current mode.
// In search mode the current keyword is searched under path.
func (e *Explorer) Navigate(ctx context.Context, path string) error {
	snap := e.Snapshot()
	return e.load(ctx, path, snap.Mode, snap.Keyword, 1)
}

// Refresh reloads the current view. In tree mode folders that were expanded
// are expanded again.
func (e *Explorer) Refresh(ctx context.Context) error {
	snap := e.Snapshot()
	if snap.Mode != models.ModeTree {
		return e.load(ctx, snap.CurrentPath, snap.Mode, snap.Keyword, snap.Page)
	}

	expanded := make(map[string]bool)
	tree.Walk(snap.Forest, func(item *models.FolderItem, _ int) bool {
		if item.IsFolder() && item.IsExpanded {
			expanded[item.Path] = true
		}
		return item.IsExpanded
	})

	forest, err := e.syncer.FetchChildren(ctx, snap.CurrentPath)
	if err != nil {
		return err
	}
	forest, err = e.reexpand(ctx, forest, forest, expanded)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Forest = forest
	e.state.Selection = nil
	metrics.SetForestNodes(tree.CountNodes(forest))
	return nil
}

func (e *Explorer) reexpand(ctx context.Context, forest, level []*models.FolderItem, expanded map[string]bool) ([]*models.FolderItem, error) {
	for _, item := range level {
		if !item.IsFolder() || !expanded[item.Path] {
			continue
		}
		children, err := e.syncer.FetchChildren(ctx, item.Path)
		if err != nil {
			return nil, err
		}
		forest, _ = tree.SetChildren(forest, item.ID, children)
		if forest, err = e.reexpand(ctx, forest, children, expanded); err != nil {
			return nil, err
		}
	}
	return forest, nil
}

// SetMode switches the view mode and reloads. Search mode is entered
// through Search.
func (e *Explorer) SetMode(ctx context.Context, mode models.ViewMode) error {
	if mode == models.ModeSearch {
		snap := e.Snapshot()
		if snap.Keyword == "" {
			return ErrEmptyKeyword
		}
		return e.load(ctx, snap.CurrentPath, mode, snap.Keyword, 1)
	}
	return e.load(ctx, e.Snapshot().CurrentPath, mode, "", 1)
}

// Search replaces the visible items with the matches of keyword under the
// current path and enters search mode.
func (e *Explorer) Search(ctx context.Context, keyword string) error {
	if keyword == "" {
		return ErrEmptyKeyword
	}
	return e.load(ctx, e.Snapshot().CurrentPath, models.ModeSearch, keyword, 1)
}

// SetPage loads another page of the flat listing.
func (e *Explorer) SetPage(ctx context.Context, page int) error {
	snap := e.Snapshot()
	if snap.Mode != models.ModeFlat {
		return ErrWrongMode
	}
	return e.load(ctx, snap.CurrentPath, snap.Mode, "", page)
}

func (e *Explorer) load(ctx context.Context, path string, mode models.ViewMode, keyword string, page int) error {
	var (
		forest []*models.FolderItem
		total  int
		err    error
	)
	switch mode {
	case models.ModeFlat:
		var p *Page
		if p, err = e.syncer.FetchPage(ctx, path, page); err == nil {
			forest, page, total = p.Items, p.Page, p.TotalCount
		}
	case models.ModeSearch:
		forest, err = e.syncer.Search(ctx, path, keyword)
		total = len(forest)
	default:
		forest, err = e.syncer.FetchChildren(ctx, path)
		total = len(forest)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Forest = forest
	e.state.CurrentPath = path
	e.state.Mode = mode
	e.state.Keyword = keyword
	e.state.Page = page
	e.state.TotalCount = total
	e.state.Selection = nil
	metrics.SetForestNodes(tree.CountNodes(forest))
	e.logger.Debug("view loaded",
		zap.String("path", path),
		zap.String("mode", string(mode)),
		zap.Int("items", len(forest)))
	return nil
}

// Expand loads the children of a folder and marks it expanded. Children are
// always fetched so that the expanded folder reflects the gateway.
func (e *Explorer) Expand(ctx context.Context, folderID string) error {
	snap := e.Snapshot()
	if snap.Mode != models.ModeTree {
		return ErrWrongMode
	}
	folder := tree.FindByID(snap.Forest, folderID)
	if folder == nil {
		return fmt.Errorf("expand %s: %w", folderID, ErrItemNotFound)
	}
	if !folder.IsFolder() {
		return fmt.Errorf("expand %s: %w", folder.Name, ErrNotFolder)
	}

	children, err := e.syncer.FetchChildren(ctx, folder.Path)
	if err != nil {
		return err
	}

	return e.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
		out, ok := tree.SetChildren(forest, folderID, children)
		if !ok {
			return nil, fmt.Errorf("expand %s: %w", folder.Name, ErrItemNotFound)
		}
		return out, nil
	})
}

// Collapse hides the children of a folder. Loaded children are kept.
func (e *Explorer) Collapse(folderID string) error {
	return e.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
		out, ok := tree.SetExpanded(forest, folderID, false)
		if !ok {
			return nil, fmt.Errorf("collapse %s: %w", folderID, ErrItemNotFound)
		}
		return out, nil
	})
}

// Select replaces the selection with the items carrying ids.
func (e *Explorer) Select(ids ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	nodes := tree.Flatten(e.state.Forest)
	selection := make([]*models.FolderItem, 0, len(ids))
	for _, id := range ids {
		item, ok := nodes[id]
		if !ok {
			return fmt.Errorf("select %s: %w", id, ErrItemNotFound)
		}
		selection = append(selection, item)
	}
	e.state.Selection = selection
	return nil
}

// ClearSelection empties the selection.
func (e *Explorer) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Selection = nil
}

// Lookup returns the current version of the item with id.
func (e *Explorer) Lookup(id string) (*models.FolderItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item := tree.FindByID(e.state.Forest, id)
	return item, item != nil
}

// apply replaces the forest with fn(forest). The forest is left alone when
// fn fails.
func (e *Explorer) apply(fn func(forest []*models.FolderItem) ([]*models.FolderItem, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	forest, err := fn(e.state.Forest)
	if err != nil {
		return err
	}
	e.state.Forest = forest
	metrics.SetForestNodes(tree.CountNodes(forest))
	return nil
}
