package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/explorer/internal/config"
	"github.com/fruitsalade/explorer/internal/explorer"
	"github.com/fruitsalade/explorer/internal/logging"
	"github.com/fruitsalade/explorer/internal/metrics"
	"github.com/fruitsalade/explorer/pkg/client"
	"github.com/fruitsalade/explorer/pkg/models"
	"github.com/fruitsalade/explorer/pkg/retry"
	"github.com/fruitsalade/explorer/pkg/session"
	"github.com/fruitsalade/explorer/pkg/tree"
)

// sessionMargin is how close to expiry a saved token is reported as expired.
const sessionMargin = time.Minute

// app is what every command runs against, built once flags are parsed.
type app struct {
	cfg     *config.Config
	store   *session.FileStore
	client  *client.Client
	metrics *http.Server
	out     io.Writer
	errOut  io.Writer
}

func newApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogOutput,
	}); err != nil {
		return nil, fmt.Errorf("logging init: %w", err)
	}

	a := &app{
		cfg:    cfg,
		store:  session.NewFileStore(cfg.SessionFile, cfg.SessionPassphrase),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	sess, err := a.store.Load()
	switch {
	case errors.Is(err, session.ErrNoSession):
		logging.Debug("no saved session", logging.String("path", a.store.Path()))
	case err != nil:
		logging.Warn("ignoring unreadable session", logging.Err(err))
		sess = nil
	case sess.IsExpired(sessionMargin):
		logging.Warn("saved session has expired, run login again",
			zap.Time("expires_at", sess.ExpiresAt))
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryAttempts
	if retryCfg.MaxAttempts < 1 {
		retryCfg = retry.Once()
	}

	a.client = client.New(client.Config{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		RetryConfig: retryCfg,
		Session:     sess,
		Transport:   logging.NewTransport(nil),
		Logger:      logging.L(),
		Observe:     metrics.RecordGatewayRequest,
	})

	if cfg.MetricsAddr != "" {
		a.startMetrics(cfg.MetricsAddr)
	}

	logging.Debug("explorer configured",
		logging.String("base_url", cfg.BaseURL),
		logging.String("mode", cfg.ViewMode),
		logging.Duration("timeout", cfg.Timeout),
		logging.Int("retry_attempts", cfg.RetryAttempts),
		logging.String("config_file", cfg.File))
	return a, nil
}

func (a *app) startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.Info("metrics server starting", logging.String("addr", addr))
		if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("metrics server error", logging.Err(err))
		}
	}()
}

func (a *app) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			logging.Warn("metrics server shutdown error", logging.Err(err))
		}
	}
	if err := logging.Sync(); err != nil {
		fmt.Fprintln(a.errOut, "flush logs:", err)
	}
}

// orchestrator builds an explorer in mode, or the configured mode when
// mode is empty.
func (a *app) orchestrator(mode models.ViewMode) *explorer.Orchestrator {
	if mode == "" {
		mode = a.cfg.Mode()
	}
	syncer := explorer.NewSyncer(a.client, explorer.SyncerConfig{
		Resolver: a.cfg.Resolver(),
		PageSize: a.cfg.PageSize,
		Logger:   logging.L().Named("syncer"),
	})
	ex := explorer.New(syncer, explorer.Config{
		HomePath: a.cfg.HomePath,
		Mode:     mode,
		Logger:   logging.L().Named("explorer"),
	})
	return explorer.NewOrchestrator(ex, newNotifier(a.errOut), logging.L().Named("dialogs"))
}

// locate loads the folder containing each path and selects the items they
// name. All paths must share one parent folder.
func locate(ctx context.Context, o *explorer.Orchestrator, paths ...string) ([]*models.FolderItem, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths given")
	}
	parent := tree.ParentPath(paths[0])
	for _, p := range paths[1:] {
		if tree.ParentPath(p) != parent {
			return nil, fmt.Errorf("%s and %s are in different folders", paths[0], p)
		}
	}
	if err := o.Navigate(ctx, parent); err != nil {
		return nil, err
	}

	forest := o.Explorer().Snapshot().Forest
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		item := childNamed(forest, baseName(p))
		if item == nil {
			return nil, fmt.Errorf("%s: %w", p, explorer.ErrItemNotFound)
		}
		ids = append(ids, item.ID)
	}
	if err := o.Explorer().Select(ids...); err != nil {
		return nil, err
	}
	return o.Explorer().Snapshot().Selection, nil
}

func childNamed(items []*models.FolderItem, name string) *models.FolderItem {
	for _, item := range items {
		if item.Name == name {
			return item
		}
	}
	return nil
}

func baseName(path string) string {
	path = strings.TrimSuffix(path, "/")
	return path[strings.LastIndex(path, "/")+1:]
}

// notifier prints dialog notifications to the terminal.
type notifier struct {
	w   io.Writer
	ok  lipgloss.Style
	bad lipgloss.Style
}

func newNotifier(w io.Writer) *notifier {
	return &notifier{
		w:   w,
		ok:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		bad: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (n *notifier) Info(message string) {
	fmt.Fprintln(n.w, n.ok.Render("✓ "+message))
}

func (n *notifier) Error(message string) {
	fmt.Fprintln(n.w, n.bad.Render("✗ "+message))
}
