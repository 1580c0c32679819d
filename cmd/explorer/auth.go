package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fruitsalade/explorer/internal/logging"
	"github.com/fruitsalade/explorer/pkg/session"
)

func newLoginCmd(get func() *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a bearer token for the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			if token == "" {
				var err error
				if token, err = readToken(cmd.InOrStdin(), a.errOut); err != nil {
					return err
				}
			}
			if token == "" {
				return errors.New("no token given")
			}

			s := session.New(token, a.cfg.BaseURL)
			verifier, err := session.NewVerifier(ctx, session.VerifierConfig{
				IssuerURL: a.cfg.OIDCIssuerURL,
				ClientID:  a.cfg.OIDCClientID,
			})
			if err != nil {
				return err
			}
			if err := verifier.Verify(ctx, s); err != nil {
				return err
			}
			if s.IsExpired(0) {
				return fmt.Errorf("token expired at %s", s.ExpiresAt.Format(time.RFC3339))
			}

			a.client.SetSession(s)
			if err := a.client.Ping(ctx); err != nil {
				logging.Warn("gateway did not answer, saving token anyway", logging.Err(err))
			}
			if err := a.store.Save(s); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in%s. Session saved to %s\n", who(s), a.store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (prompted when empty)")
	return cmd
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			s, err := a.store.Load()
			if errors.Is(err, session.ErrNoSession) {
				return errors.New("not logged in")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "User:    %s\n", orDash(s.User.Name))
			fmt.Fprintf(a.out, "ID:      %s\n", orDash(s.User.ID))
			fmt.Fprintf(a.out, "Email:   %s\n", orDash(s.User.Email))
			fmt.Fprintf(a.out, "Server:  %s\n", orDash(s.Server))
			switch {
			case s.ExpiresAt.IsZero():
				fmt.Fprintln(a.out, "Expires: never")
			case s.IsExpired(0):
				fmt.Fprintf(a.out, "Expires: %s (expired)\n", s.ExpiresAt.Local().Format(time.RFC3339))
			default:
				fmt.Fprintf(a.out, "Expires: %s\n", s.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}

// readToken prompts without echo on a terminal and reads a line otherwise.
func readToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func who(s *session.Session) string {
	switch {
	case s.User.Name != "":
		return " as " + s.User.Name
	case s.User.Email != "":
		return " as " + s.User.Email
	case s.User.ID != "":
		return " as " + s.User.ID
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
