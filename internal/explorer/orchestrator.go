package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fruitsalade/explorer/internal/metrics"
	"github.com/fruitsalade/explorer/internal/permissions"
	"github.com/fruitsalade/explorer/pkg/client"
	"github.com/fruitsalade/explorer/pkg/models"
	"github.com/fruitsalade/explorer/pkg/protocol"
	"github.com/fruitsalade/explorer/pkg/tree"
)

var (
	// ErrNotPermitted is returned when a target lacks the capability an
	// operation needs.
	ErrNotPermitted = errors.New("not permitted")
	// ErrDialogClosed is returned when submitting a dialog that is not open.
	ErrDialogClosed = errors.New("dialog is not open")
	// ErrNoTargets is returned when a dialog that needs targets gets none.
	ErrNoTargets = errors.New("nothing selected")
)

// GenericFailure is shown when a failure carries no server message.
const GenericFailure = "Something went wrong. Please try again."

// DialogKind names one of the explorer's dialogs.
type DialogKind string

const (
	DialogRename       DialogKind = "rename"
	DialogDelete       DialogKind = "delete"
	DialogComment      DialogKind = "comment"
	DialogDetails      DialogKind = "details"
	DialogChangeIcon   DialogKind = "change-icon"
	DialogNewFolder    DialogKind = "new-folder"
	DialogNewFile      DialogKind = "new-file"
	DialogMoveCopy     DialogKind = "move-copy"
	DialogPathNotFound DialogKind = "path-not-found"
)

// Dialog is the state of one dialog.
type Dialog struct {
	Kind    DialogKind
	Open    bool
	Targets []*models.FolderItem
	// Path is the folder a new-folder or new-file dialog creates in, or
	// the path a path-not-found dialog reports.
	Path string
	// Detail is loaded when a details dialog opens.
	Detail *models.FolderDetail
	// Err is the failure of the last submit.
	Err error
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// LogNotifier sends notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

// Info implements Notifier.
func (n LogNotifier) Info(message string) {
	n.Logger.Info(message)
}

// Error implements Notifier.
func (n LogNotifier) Error(message string) {
	n.Logger.Warn(message)
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	if ae, ok := client.AsAPIError(err); ok && ae.Message != "" {
		return ae.Message
	}
	var ve *protocol.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, ErrNotPermitted) || errors.Is(err, ErrNoTargets) {
		return err.Error()
	}
	if errors.Is(err, client.ErrTransport) {
		return "The server could not be reached. Please try again."
	}
	return GenericFailure
}

// Orchestrator runs the explorer's dialogs. It is the only caller of the
// Syncer's mutating methods: every mutation goes open, submit, then either
// closes the dialog or leaves it open with the error.
type Orchestrator struct {
	explorer *Explorer
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	dialogs map[DialogKind]*Dialog
}

// NewOrchestrator creates an Orchestrator over ex. A nil notifier logs.
func NewOrchestrator(ex *Explorer, notifier Notifier, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Orchestrator{
		explorer: ex,
		notifier: notifier,
		logger:   logger,
		dialogs:  make(map[DialogKind]*Dialog),
	}
}

// Explorer returns the explorer the orchestrator drives.
func (o *Orchestrator) Explorer() *Explorer {
	return o.explorer
}

// Dialog returns a copy of the state of a dialog.
func (o *Orchestrator) Dialog(kind DialogKind) Dialog {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d, ok := o.dialogs[kind]; ok {
		cp := *d
		cp.Targets = append([]*models.FolderItem(nil), d.Targets...)
		return cp
	}
	return Dialog{Kind: kind}
}

var dialogOps = map[DialogKind]permissions.Operation{
	DialogRename:     permissions.OpRename,
	DialogDelete:     permissions.OpDelete,
	DialogComment:    permissions.OpComment,
	DialogDetails:    permissions.OpDetails,
	DialogChangeIcon: permissions.OpChangeIcon,
	DialogNewFolder:  permissions.OpNewFolder,
	DialogNewFile:    permissions.OpNewFile,
}

// Open opens a dialog on targets, or on the selection when no targets are
// given. Rename, comment, details and change-icon take the first target.
// New-folder and new-file create in the first target folder, or in the
// current folder when there is none. Move/copy is opened with OpenMoveCopy.
func (o *Orchestrator) Open(kind DialogKind, targets ...*models.FolderItem) error {
	switch kind {
	case DialogMoveCopy:
		return o.OpenMoveCopy(models.ActionMove, targets...)
	case DialogPathNotFound:
		o.open(&Dialog{Kind: kind, Path: o.explorer.Snapshot().CurrentPath})
		return nil
	}

	snap := o.explorer.Snapshot()
	if len(targets) == 0 {
		targets = snap.Selection
	}

	d := &Dialog{Kind: kind}
	switch kind {
	case DialogNewFolder, DialogNewFile:
		d.Path = snap.CurrentPath
		if len(targets) > 0 {
			if !targets[0].IsFolder() {
				return fmt.Errorf("%s in %s: %w", kind, targets[0].Name, ErrNotFolder)
			}
			d.Path = targets[0].Path
			d.Targets = targets[:1]
		}
	case DialogDelete:
		if len(targets) == 0 {
			return fmt.Errorf("%s: %w", kind, ErrNoTargets)
		}
		d.Targets = targets
	case DialogRename, DialogComment, DialogDetails, DialogChangeIcon:
		if len(targets) == 0 {
			return fmt.Errorf("%s: %w", kind, ErrNoTargets)
		}
		if kind != DialogRename && !targets[0].IsFolder() {
			return fmt.Errorf("%s on %s: %w", kind, targets[0].Name, ErrNotFolder)
		}
		d.Targets = targets[:1]
	default:
		return fmt.Errorf("unknown dialog %q", kind)
	}

	if err := checkPermitted(dialogOps[kind], d.Targets); err != nil {
		return err
	}
	o.open(d)
	return nil
}

// OpenMoveCopy opens the move/copy dialog on targets, or on the selection.
func (o *Orchestrator) OpenMoveCopy(action models.Action, targets ...*models.FolderItem) error {
	if len(targets) == 0 {
		targets = o.explorer.Snapshot().Selection
	}
	if len(targets) == 0 {
		return fmt.Errorf("%s: %w", DialogMoveCopy, ErrNoTargets)
	}
	op := permissions.OpMove
	if action == models.ActionCopy {
		op = permissions.OpCopy
	}
	if err := checkPermitted(op, targets); err != nil {
		return err
	}
	o.open(&Dialog{Kind: DialogMoveCopy, Targets: targets})
	return nil
}

// OpenDetails opens the details dialog on a folder and loads its metadata.
// The dialog stays closed when loading fails.
func (o *Orchestrator) OpenDetails(ctx context.Context, target *models.FolderItem) (*models.FolderDetail, error) {
	var targets []*models.FolderItem
	if target != nil {
		targets = append(targets, target)
	}
	if err := o.Open(DialogDetails, targets...); err != nil {
		return nil, err
	}
	d := o.Dialog(DialogDetails)
	detail, err := o.explorer.syncer.FolderDetail(ctx, d.Targets[0].Path)
	if err != nil {
		o.Cancel(DialogDetails)
		o.notifier.Error(Message(err))
		return nil, err
	}

	o.mu.Lock()
	if cur, ok := o.dialogs[DialogDetails]; ok && cur.Open {
		cur.Detail = detail
	}
	o.mu.Unlock()
	return detail, nil
}

// DestinationFolders lists folders under path for the move/copy picker.
func (o *Orchestrator) DestinationFolders(ctx context.Context, path string) ([]*models.FolderItem, error) {
	return o.explorer.syncer.DestinationFolders(ctx, path)
}

// Cancel closes a dialog and clears its targets without calling the gateway.
func (o *Orchestrator) Cancel(kind DialogKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.dialogs, kind)
}

func (o *Orchestrator) open(d *Dialog) {
	d.Open = true
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dialogs[d.Kind] = d
}

func checkPermitted(op permissions.Operation, targets []*models.FolderItem) error {
	c := permissions.Required(op)
	if denied := permissions.Denied(targets, c); len(denied) > 0 {
		return fmt.Errorf("%s %s: %w", op, strings.Join(denied, ", "), ErrNotPermitted)
	}
	return nil
}

// Navigate loads path. A missing path opens the path-not-found dialog.
func (o *Orchestrator) Navigate(ctx context.Context, path string) error {
	err := o.explorer.Navigate(ctx, path)
	if err == nil {
		return nil
	}
	if client.IsNotFound(err) {
		o.open(&Dialog{Kind: DialogPathNotFound, Path: path, Err: err})
	}
	o.notifier.Error(Message(err))
	return err
}

// SubmitPathNotFound closes the path-not-found dialog and returns home.
func (o *Orchestrator) SubmitPathNotFound(ctx context.Context) error {
	return o.submit(ctx, DialogPathNotFound, func(ctx context.Context, _ *Dialog, snap State) (string, error) {
		return "", o.explorer.Navigate(ctx, snap.HomePath)
	})
}

// SubmitRename renames the dialog's target.
func (o *Orchestrator) SubmitRename(ctx context.Context, newName string) error {
	return o.submit(ctx, DialogRename, func(ctx context.Context, d *Dialog, snap State) (string, error) {
		target := o.current(d.Targets[0])
		if err := o.explorer.syncer.Rename(ctx, target, newName); err != nil {
			return "", err
		}
		msg := fmt.Sprintf("Renamed %s to %s", target.Name, newName)
		if snap.Mode != models.ModeTree {
			return msg, o.refetch(ctx, snap.Mode)
		}
		return msg, o.explorer.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
			return tree.UpdateItem(forest, target.ID, tree.Rename(target, newName)), nil
		})
	})
}

// SubmitDelete deletes the dialog's targets.
func (o *Orchestrator) SubmitDelete(ctx context.Context) error {
	return o.submit(ctx, DialogDelete, func(ctx context.Context, d *Dialog, snap State) (string, error) {
		targets := o.currentAll(d.Targets)
		if err := o.explorer.syncer.DeleteMany(ctx, snap.Mode, snap.CurrentPath, targets); err != nil {
			return "", err
		}
		msg := fmt.Sprintf("Deleted %d item(s)", len(targets))
		if snap.Mode != models.ModeTree {
			return msg, o.refetch(ctx, snap.Mode)
		}
		return msg, o.explorer.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
			return tree.DeleteItems(forest, targets), nil
		})
	})
}

// SubmitComment attaches text to the dialog's target folder.
func (o *Orchestrator) SubmitComment(ctx context.Context, text string) error {
	return o.submit(ctx, DialogComment, func(ctx context.Context, d *Dialog, _ State) (string, error) {
		if err := o.explorer.syncer.AddComment(ctx, d.Targets[0].Path, text); err != nil {
			return "", err
		}
		return "Comment added", nil
	})
}

// SubmitDetails closes the details dialog.
func (o *Orchestrator) SubmitDetails(ctx context.Context) error {
	return o.submit(ctx, DialogDetails, func(context.Context, *Dialog, State) (string, error) {
		return "", nil
	})
}

// SubmitChangeIcon sets the icon of the dialog's target folder. The item is
// updated in place in every view mode.
func (o *Orchestrator) SubmitChangeIcon(ctx context.Context, icon string) error {
	return o.submit(ctx, DialogChangeIcon, func(ctx context.Context, d *Dialog, _ State) (string, error) {
		target := o.current(d.Targets[0])
		if err := o.explorer.syncer.ChangeIcon(ctx, target.Path, icon); err != nil {
			return "", err
		}
		return "Icon changed", o.explorer.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
			out, _ := tree.UpdateFunc(forest, target.ID, func(item *models.FolderItem) *models.FolderItem {
				cp := *item
				cp.Icon = icon
				return &cp
			})
			return out, nil
		})
	})
}

// SubmitNewFolder creates a folder in the dialog's folder.
func (o *Orchestrator) SubmitNewFolder(ctx context.Context, name, icon string) error {
	return o.submit(ctx, DialogNewFolder, func(ctx context.Context, d *Dialog, snap State) (string, error) {
		item, err := o.explorer.syncer.CreateFolder(ctx, name, icon, d.Path)
		if err != nil {
			return "", err
		}
		return "Created folder " + item.Name, o.splice(ctx, snap, d.Path, item)
	})
}

// SubmitNewFile creates a file in the dialog's folder.
func (o *Orchestrator) SubmitNewFile(ctx context.Context, payload FilePayload) error {
	return o.submit(ctx, DialogNewFile, func(ctx context.Context, d *Dialog, snap State) (string, error) {
		item, err := o.explorer.syncer.CreateFile(ctx, payload, d.Path)
		if err != nil {
			return "", err
		}
		return "Created file " + item.Name, o.splice(ctx, snap, d.Path, item)
	})
}

// SubmitMoveCopy moves or copies the dialog's targets into destinationPath.
// In tree mode the forest is rebuilt locally; when the destination folder is
// not loaded the view is refetched instead. Copied files get their ids from
// the gateway, so a copy that includes files reloads the destination.
func (o *Orchestrator) SubmitMoveCopy(ctx context.Context, destinationPath string, action models.Action) error {
	return o.submit(ctx, DialogMoveCopy, func(ctx context.Context, d *Dialog, snap State) (string, error) {
		targets := o.currentAll(d.Targets)
		if err := checkPermitted(moveOp(action), targets); err != nil {
			return "", err
		}
		if err := o.explorer.syncer.MoveCopy(ctx, snap.Mode, snap.CurrentPath, targets, destinationPath, action); err != nil {
			return "", err
		}
		verb := "Moved"
		if action == models.ActionCopy {
			verb = "Copied"
		}
		msg := fmt.Sprintf("%s %d item(s) to %s", verb, len(targets), destinationPath)
		if snap.Mode != models.ModeTree {
			return msg, o.refetch(ctx, snap.Mode)
		}

		if action == models.ActionCopy && tree.ContainsFile(targets) {
			return msg, o.reloadFolder(ctx, snap, destinationPath)
		}

		missed := false
		err := o.explorer.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
			out, ok := tree.MoveItems(forest, targets, destinationPath, snap.CurrentPath, action)
			if !ok {
				missed = true
				return forest, nil
			}
			return out, nil
		})
		if err != nil {
			return msg, err
		}
		if missed {
			metrics.RecordInsertMiss()
			o.logger.Debug("destination not loaded, refetching", zap.String("destination", destinationPath))
			return msg, o.refetch(ctx, snap.Mode)
		}
		return msg, nil
	})
}

func moveOp(action models.Action) permissions.Operation {
	if action == models.ActionCopy {
		return permissions.OpCopy
	}
	return permissions.OpMove
}

// splice adds a created item to the tree: first in the current folder's
// listing when created there, otherwise first among the parent's children.
func (o *Orchestrator) splice(ctx context.Context, snap State, parentPath string, item *models.FolderItem) error {
	if snap.Mode != models.ModeTree {
		return o.refetch(ctx, snap.Mode)
	}
	missed := false
	err := o.explorer.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
		out, ok := tree.InsertItems(forest, parentPath, snap.CurrentPath, []*models.FolderItem{item}, true)
		if !ok {
			missed = true
			return forest, nil
		}
		return out, nil
	})
	if err != nil || !missed {
		return err
	}
	metrics.RecordInsertMiss()
	return o.refetch(ctx, snap.Mode)
}

// reloadFolder replaces the children of the loaded folder at path with the
// gateway's listing. The current folder, or one that is not loaded, is
// refetched as a whole.
func (o *Orchestrator) reloadFolder(ctx context.Context, snap State, path string) error {
	folder := tree.FindByPath(snap.Forest, path)
	if path == snap.CurrentPath || folder == nil {
		return o.refetch(ctx, snap.Mode)
	}
	metrics.RecordRefetch(string(snap.Mode))
	children, err := o.explorer.syncer.FetchChildren(ctx, path)
	if err != nil {
		return &RefetchError{Err: err}
	}
	return o.explorer.apply(func(forest []*models.FolderItem) ([]*models.FolderItem, error) {
		out, ok := tree.SetChildren(forest, folder.ID, children)
		if !ok {
			return nil, &RefetchError{Err: fmt.Errorf("reload %s: %w", path, ErrItemNotFound)}
		}
		return out, nil
	})
}

func (o *Orchestrator) refetch(ctx context.Context, mode models.ViewMode) error {
	metrics.RecordRefetch(string(mode))
	if err := o.explorer.Refresh(ctx); err != nil {
		return &RefetchError{Err: err}
	}
	return nil
}

// current returns the forest's version of item, which may have changed
// since the dialog opened.
func (o *Orchestrator) current(item *models.FolderItem) *models.FolderItem {
	if cur, ok := o.explorer.Lookup(item.ID); ok {
		return cur
	}
	return item
}

func (o *Orchestrator) currentAll(items []*models.FolderItem) []*models.FolderItem {
	out := make([]*models.FolderItem, len(items))
	for i, item := range items {
		out[i] = o.current(item)
	}
	return out
}

// RefetchError reports a view reload that failed after the mutation itself
// succeeded. The dialog is closed regardless.
type RefetchError struct {
	Err error
}

func (e *RefetchError) Error() string { return "reload view: " + e.Err.Error() }
func (e *RefetchError) Unwrap() error { return e.Err }

// submit runs fn for an open dialog and returns fn's success message. Any
// error other than a *RefetchError leaves the dialog open with the error.
func (o *Orchestrator) submit(ctx context.Context, kind DialogKind, fn func(ctx context.Context, d *Dialog, snap State) (string, error)) error {
	d := o.Dialog(kind)
	if !d.Open {
		return fmt.Errorf("%s: %w", kind, ErrDialogClosed)
	}

	msg, err := fn(ctx, &d, o.explorer.Snapshot())
	var refetchErr *RefetchError
	if err != nil && !errors.As(err, &refetchErr) {
		metrics.RecordDialogSubmit(string(kind), false)
		o.mu.Lock()
		if cur, ok := o.dialogs[kind]; ok {
			cur.Err = err
		}
		o.mu.Unlock()
		o.logger.Warn("dialog submit failed", zap.String("dialog", string(kind)), zap.Error(err))
		o.notifier.Error(Message(err))
		return err
	}

	metrics.RecordDialogSubmit(string(kind), true)
	o.Cancel(kind)
	o.explorer.ClearSelection()
	if msg != "" {
		o.notifier.Info(msg)
	}
	if err != nil {
		o.logger.Warn("view out of date after submit", zap.String("dialog", string(kind)), zap.Error(err))
		o.notifier.Error(Message(err))
		return err
	}
	return nil
}
