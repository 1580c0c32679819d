package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/explorer/internal/explorer"
	"github.com/fruitsalade/explorer/internal/render"
	"github.com/fruitsalade/explorer/pkg/models"
	"github.com/fruitsalade/explorer/pkg/tree"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		a          *app
	)

	root := &cobra.Command{
		Use:           "explorer",
		Short:         "Browse and edit folders on an explorer gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd, configPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default: explorer.yaml in the user config dir)")
	pf.String("base-url", "", "gateway base URL")
	pf.String("view-mode", "tree", "view mode: tree or flat")
	pf.String("home-path", "/", "folder shown when no path is given")
	pf.Int("page-size", 50, "flat listing page size")
	pf.Int("retry-attempts", 3, "attempts for gateway reads")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address")
	pf.String("session-file", "", "session file (default: explorer/session in the user config dir)")

	get := func() *app { return a }
	root.AddCommand(
		newLsCmd(get),
		newTreeCmd(get),
		newSearchCmd(get),
		newDetailsCmd(get),
		newRenameCmd(get),
		newRmCmd(get),
		newMoveCopyCmd(get, models.ActionMove),
		newMoveCopyCmd(get, models.ActionCopy),
		newMkdirCmd(get),
		newTouchCmd(get),
		newCommentCmd(get),
		newIconCmd(get),
		newLoginCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
	)
	return root
}

func newLsCmd(get func() *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			o := a.orchestrator("")
			path := a.cfg.HomePath
			if len(args) == 1 {
				path = args[0]
			}
			if err := o.Navigate(cmd.Context(), path); err != nil {
				return err
			}
			ex := o.Explorer()
			if page > 1 {
				if err := ex.SetPage(cmd.Context(), page); err != nil {
					return err
				}
			}

			s := ex.Snapshot()
			fmt.Fprintln(a.out, render.Breadcrumb(s.CurrentPath))
			fmt.Fprintln(a.out, render.List(s.Forest))
			if s.Mode == models.ModeFlat {
				fmt.Fprintln(a.out, render.Pager(s.Page, a.cfg.PageSize, s.TotalCount))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page of the flat listing")
	return cmd
}

func newTreeCmd(get func() *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Show a folder hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			o := a.orchestrator(models.ModeTree)
			path := a.cfg.HomePath
			if len(args) == 1 {
				path = args[0]
			}
			if err := o.Navigate(ctx, path); err != nil {
				return err
			}

			ex := o.Explorer()
			for level := 0; level < depth-1; level++ {
				var ids []string
				tree.Walk(ex.Snapshot().Forest, func(item *models.FolderItem, d int) bool {
					if d == level && item.IsFolder() {
						ids = append(ids, item.ID)
					}
					return d < level
				})
				for _, id := range ids {
					if err := ex.Expand(ctx, id); err != nil {
						return err
					}
				}
			}

			fmt.Fprintln(a.out, render.Tree(path, ex.Snapshot().Forest))
			return nil
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "L", 2, "levels to show")
	return cmd
}

func newSearchCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword> [path]",
		Short: "Find folders and files by name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			o := a.orchestrator("")
			path := a.cfg.HomePath
			if len(args) == 2 {
				path = args[1]
			}
			if err := o.Navigate(cmd.Context(), path); err != nil {
				return err
			}
			if err := o.Explorer().Search(cmd.Context(), args[0]); err != nil {
				return err
			}
			s := o.Explorer().Snapshot()
			fmt.Fprintf(a.out, "%d matches for %q in %s\n", len(s.Forest), s.Keyword, s.CurrentPath)
			fmt.Fprintln(a.out, render.List(s.Forest))
			return nil
		},
	}
}

func newDetailsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "details <path>",
		Short: "Show folder details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			o := a.orchestrator(models.ModeTree)
			items, err := locate(cmd.Context(), o, args[0])
			if err != nil {
				return err
			}
			detail, err := o.OpenDetails(cmd.Context(), items[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, render.Detail(detail))
			return o.SubmitDetails(cmd.Context())
		},
	}
}

func newRenameCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a folder or file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			items, err := locate(cmd.Context(), o, args[0])
			if err != nil {
				return err
			}
			if err := o.Open(explorer.DialogRename, items[0]); err != nil {
				return err
			}
			return o.SubmitRename(cmd.Context(), args[1])
		},
	}
}

func newRmCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete folders and files from one folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			if _, err := locate(cmd.Context(), o, args...); err != nil {
				return err
			}
			if err := o.Open(explorer.DialogDelete); err != nil {
				return err
			}
			return o.SubmitDelete(cmd.Context())
		},
	}
}

func newMoveCopyCmd(get func() *app, action models.Action) *cobra.Command {
	use, short := "mv", "Move folders and files into another folder"
	if action == models.ActionCopy {
		use, short = "cp", "Copy folders and files into another folder"
	}
	return &cobra.Command{
		Use:   use + " <path>... <destination>",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			sources, dest := args[:len(args)-1], args[len(args)-1]
			if _, err := locate(cmd.Context(), o, sources...); err != nil {
				return err
			}
			if err := o.OpenMoveCopy(action); err != nil {
				return err
			}
			return o.SubmitMoveCopy(cmd.Context(), dest, action)
		},
	}
}

func newMkdirCmd(get func() *app) *cobra.Command {
	var icon string
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			if err := o.Navigate(cmd.Context(), tree.ParentPath(args[0])); err != nil {
				return err
			}
			if err := o.Open(explorer.DialogNewFolder); err != nil {
				return err
			}
			return o.SubmitNewFolder(cmd.Context(), baseName(args[0]), icon)
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "folder icon")
	return cmd
}

func newTouchCmd(get func() *app) *cobra.Command {
	var payload explorer.FilePayload
	cmd := &cobra.Command{
		Use:   "touch <folder>",
		Short: "Create a file record in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			if err := o.Navigate(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := o.Open(explorer.DialogNewFile); err != nil {
				return err
			}
			return o.SubmitNewFile(cmd.Context(), payload)
		},
	}
	cmd.Flags().StringVar(&payload.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&payload.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&payload.Email, "email", "", "email address")
	return cmd
}

func newCommentCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <path> <text>...",
		Short: "Comment on a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			items, err := locate(cmd.Context(), o, args[0])
			if err != nil {
				return err
			}
			if err := o.Open(explorer.DialogComment, items[0]); err != nil {
				return err
			}
			return o.SubmitComment(cmd.Context(), strings.Join(args[1:], " "))
		},
	}
}

func newIconCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "icon <path> <icon>",
		Short: "Change a folder's icon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := get().orchestrator("")
			items, err := locate(cmd.Context(), o, args[0])
			if err != nil {
				return err
			}
			if err := o.Open(explorer.DialogChangeIcon, items[0]); err != nil {
				return err
			}
			return o.SubmitChangeIcon(cmd.Context(), args[1])
		},
	}
}
