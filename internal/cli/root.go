// Package cli implements vamictl, a terminal client for the Vami console.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/ashureev/vami-console/internal/pages"
	"github.com/ashureev/vami-console/internal/session"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/spf13/cobra"
)

// ErrNotSignedIn is returned by commands that need a session when none is stored.
var ErrNotSignedIn = errors.New("not signed in or session expired; run `vamictl login`")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	APIURL    string
	TokenPath string
	Format    string // "json" | "text"
	Timeout   time.Duration
	Verbose   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for vamictl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vamictl",
		Short: "vamictl - Vami console from the terminal",
		Long:  "Sign in, onboard a voice agent and check calls and usage on the Vami platform.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("VAMI_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000/api"
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", defaultURL, "Vami API base URL")
	cmd.PersistentFlags().StringVar(&opts.TokenPath, "token-file", "", "where the access token is kept (default: user config dir)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "API request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log API traffic to stderr")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewMeCommand(opts))
	cmd.AddCommand(NewOnboardCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewCallsCommand(opts))

	return cmd
}

// openSession loads the stored token and verifies it with the backend. A token the backend
// rejects is erased.
func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session.Store, error) {
	path := opts.TokenPath
	if path == "" {
		var err error
		if path, err = session.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	client, err := vamiapi.New(opts.APIURL,
		vamiapi.WithTimeout(opts.Timeout),
		vamiapi.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	s := session.New(session.NewFileTokenStore(path), client, session.WithLogger(logger))
	s.Init(ctx)
	return s, nil
}

// newLogger logs to w at debug level when verbose, and nowhere otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// requireSession is openSession for commands that need a signed-in user.
func requireSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session.Store, error) {
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return nil, err
	}
	if !s.Authenticated() {
		return nil, ErrNotSignedIn
	}
	return s, nil
}

func newLoader(logger *slog.Logger) (*pages.Loader, error) {
	plans, err := pages.LoadCatalog("")
	if err != nil {
		return nil, err
	}
	faq, err := pages.LoadFAQ("")
	if err != nil {
		return nil, err
	}
	return pages.NewLoader(plans, faq, logger), nil
}

// writeJSON prints v indented, for --format json.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// apiError turns a client error into the message a user should see.
func apiError(err error, fallback string) error {
	if vamiapi.IsUnauthorized(err) {
		return ErrNotSignedIn
	}
	return errors.New(vamiapi.Message(err, fallback))
}
