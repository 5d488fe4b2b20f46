// Package app wires the goalpath services together with fx.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/goalpath/internal/config"
	"github.com/metalagman/goalpath/internal/db"
	"github.com/metalagman/goalpath/internal/mcpserver"
	"github.com/metalagman/goalpath/internal/notify"
	"github.com/metalagman/goalpath/internal/planner"
	"github.com/metalagman/goalpath/internal/tools"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/metalagman/goalpath/internal/web"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

const shutdownTimeout = 5 * time.Second

// Version is reported by the MCP server.
var Version = "dev"

// Module provides every service built from cfg. Each is constructed once per
// fx application.
func Module(cfg config.Config) fx.Option {
	return fx.Module("goalpath",
		fx.Supply(cfg),
		fx.Provide(
			openDatabase,
			fx.Annotate(db.NewStore, fx.As(new(tracker.Storage))),
			newInbox,
			newNotifier,
			newTracker,
			tools.NewDispatcher,
			fx.Annotate(planner.NewPlanner, fx.From(new(*tracker.Tracker))),
			newWebServer,
			newMCPServer,
		),
	)
}

// New builds an application from cfg plus extra options such as fx.Populate
// or fx.Invoke. fx's own event log is discarded in favour of zerolog.
func New(cfg config.Config, opts ...fx.Option) *fx.App {
	all := append([]fx.Option{Module(cfg), fx.NopLogger}, opts...)
	return fx.New(all...)
}

func openDatabase(lc fx.Lifecycle, cfg config.Config) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Close))
	return conn, nil
}

func newInbox(cfg config.Config) *notify.Inbox {
	return notify.NewInbox(cfg.Notifications.InboxSize)
}

func newNotifier(inbox *notify.Inbox) notify.Notifier {
	return notify.Multi{notify.LogNotifier{}, inbox}
}

func newTracker(cfg config.Config, store tracker.Storage, n notify.Notifier) *tracker.Tracker {
	return tracker.New(store, cfg.UserID, tracker.WithNotifier(n))
}

func newWebServer(tr *tracker.Tracker, d *tools.Dispatcher, p *planner.Planner, inbox *notify.Inbox) (*web.Server, error) {
	return web.NewServer(tr, d, p, web.WithInbox(inbox))
}

func newMCPServer(d *tools.Dispatcher) (*mcpserver.Server, error) {
	return mcpserver.New(d, Version)
}

// ServeHTTP registers the HTTP listener on the application lifecycle.
func ServeHTTP(lc fx.Lifecycle, cfg config.Config, srv *web.Server) {
	httpServer := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", httpServer.Addr, err)
			}
			log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	})
}

// ServeMCP runs the MCP server over stdio for the lifetime of the application
// and shuts the application down when the client disconnects.
func ServeMCP(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *mcpserver.Server) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("mcp server stopped")
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
