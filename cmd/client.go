package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/ccoveille/go-safecast"
	"github.com/jon4hz/pictura/internal/config"
	"github.com/jon4hz/pictura/internal/gallery"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/jon4hz/pictura/internal/session"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run `pictura login` first")

// app is the command line counterpart of a browser instance: one session
// whose token lives in the token file.
type app struct {
	cfg     *config.Config
	api     *imagehost.Client
	session *session.Store
	tokens  *session.FileTokenStore
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return nil, err
	}

	tokens := session.NewFileTokenStore(cfg.TokenFile)
	api := imagehost.New(cfg.API).WithTokens(tokens)
	a := &app{
		cfg:     cfg,
		api:     api,
		session: session.New(api, tokens),
		tokens:  tokens,
	}
	a.session.Initialize(ctx)
	return a, nil
}

// loggedIn returns the app if a user is logged in.
func loggedIn(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if a.session.User() == nil {
		return nil, errNotLoggedIn
	}
	return a, nil
}

// check turns an unauthorized response into a logout.
func (a *app) check(err error) error {
	if err == nil {
		return nil
	}
	if a.session.HandleError(err) {
		return fmt.Errorf("session expired, run `pictura login` again: %w", err)
	}
	return fmt.Errorf("%s: %w", imagehost.Message(err, "request failed"), err)
}

// collect loads up to pages pages of scope into p.
// Entries loaded before a failure are returned together with the error.
func collect[T any](ctx context.Context, p *gallery.Pager[uint64, T, uint64], scope uint64, pages int) ([]T, bool, error) {
	if err := p.SetScope(ctx, scope); err != nil {
		return nil, false, err
	}
	for p.Page() < pages && p.HasMore() {
		if err := p.LoadMore(ctx); err != nil {
			return p.Items(), p.HasMore(), err
		}
	}
	return p.Items(), p.HasMore(), nil
}

func parseID(arg string) (uint64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", arg, err)
	}
	id, err := safecast.ToUint64(n)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func openUpload(path string) (imagehost.Upload, func() error, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return imagehost.Upload{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return imagehost.Upload{Filename: filepath.Base(path), Content: f}, f.Close, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
