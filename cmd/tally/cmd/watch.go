package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/live"
	"github.com/pengelbrecht/tally/internal/runrecord"
	"github.com/pengelbrecht/tally/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		opts  runOptions
		serve string
	)
	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-run scenarios whenever feature files change",
		Long: `Run scenarios, then run them again each time a feature file changes.

With --serve, results are also pushed as JSON to websocket clients
connected to ws://<addr>/ws, and the latest run is available at
http://<addr>/latest.

Examples:
  tally watch
  tally watch features/ --tags @add
  tally watch --serve localhost:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			opts, err := opts.resolve(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dirs := args
			if len(dirs) == 0 {
				dirs = []string{filepath.Join(root, cfg.Features)}
			}

			var onRecord func(*runrecord.Record)
			if serve == "" {
				serve = cfg.Watch.GetServe()
			}
			if serve != "" {
				hub := live.NewHub(live.WithLogger(a.logger))
				defer hub.Close()
				_, shutdown, err := a.serveLive(serve, hub)
				if err != nil {
					return NewExitError(ExitUsage, "failed to serve on %s: %v", serve, err)
				}
				defer shutdown()
				onRecord = a.broadcaster(hub)
			}

			rerun := func() {
				if _, err := a.runOnce(ctx, root, cfg, args, opts, onRecord); err != nil {
					fmt.Fprintf(a.stderr, "Error: %v\n", err)
				}
			}
			rerun()

			w := watch.New(dirs, cfg.Pattern,
				watch.WithDebounce(cfg.Watch.GetDebounce()),
				watch.WithLogger(a.logger),
			)
			if err := w.Start(); err != nil {
				return NewExitError(ExitUsage, "failed to watch: %v", err)
			}
			defer w.Stop()

			fmt.Fprintln(a.stderr, "Watching for changes. Press Ctrl+C to stop.")
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					a.logger.Debug("feature files changed", "paths", ev.Paths)
					fmt.Fprintf(a.stdout, "\n%s changed: %d file(s)\n\n", time.Now().Format("15:04:05"), len(ev.Paths))
					rerun()
				}
			}
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&serve, "serve", "", "address for live results over websocket (e.g. localhost:7070)")
	return cmd
}

// broadcaster returns a record callback that pushes each run to hub.
func (a *app) broadcaster(hub *live.Hub) func(*runrecord.Record) {
	return func(rec *runrecord.Record) {
		if err := hub.BroadcastRun(rec); err != nil {
			a.logger.Warn("broadcast failed", "error", err)
			return
		}
		a.logger.Debug("broadcast run", "id", rec.ID, "clients", hub.Clients())
	}
}

// liveHandler exposes the hub at /ws and the latest run at /latest.
func liveHandler(hub *live.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		last := hub.Last()
		if last == nil {
			http.Error(w, "no runs yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(last)
	})
	return mux
}

// serveLive starts an HTTP server for liveHandler on addr. It returns the
// bound address and a function that shuts the server down.
func (a *app) serveLive(addr string, hub *live.Hub) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{Handler: liveHandler(hub), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("live server stopped", "error", err)
		}
	}()

	fmt.Fprintf(a.stderr, "Serving live results on ws://%s/ws\n", ln.Addr())
	return ln.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown live server", "error", err)
		}
	}, nil
}
