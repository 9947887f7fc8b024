package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/config"
	"github.com/pengelbrecht/tally/internal/feature"
	"github.com/pengelbrecht/tally/internal/report"
	"github.com/pengelbrecht/tally/internal/runner"
	"github.com/pengelbrecht/tally/internal/runrecord"
)

// runOptions are the flags shared by run and watch.
type runOptions struct {
	format   string
	tags     string
	parallel int
	noRecord bool
	expand   bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "report format: pretty, progress, json (default from config)")
	cmd.Flags().StringVarP(&o.tags, "tags", "t", "", `tag filter, e.g. "@add,~@slow" (default from config)`)
	cmd.Flags().IntVarP(&o.parallel, "parallel", "p", 0, "scenarios to run at once (default from config)")
	cmd.Flags().BoolVar(&o.noRecord, "no-record", false, "do not save a run record")
	cmd.Flags().BoolVar(&o.expand, "expand", false, "show steps of passing scenarios")
}

// resolve merges flags over config values.
func (o runOptions) resolve(cfg config.Config) (runOptions, error) {
	if o.format == "" {
		o.format = cfg.Format
	}
	if !config.ValidFormat(o.format) {
		return o, NewExitError(ExitUsage, "unknown format %q", o.format)
	}
	if o.tags == "" {
		o.tags = cfg.Tags
	}
	if o.parallel == 0 {
		o.parallel = cfg.Parallel
	}
	if o.parallel < 0 {
		return o, NewExitError(ExitUsage, "--parallel must be positive")
	}
	return o, nil
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [path...]",
		Short: "Run feature files",
		Long: `Run feature files.

Paths may be files or directories; directories are searched for files
matching the configured pattern (default *.feature). With no paths, the
configured features directory is used.

Examples:
  # Run every feature under ./features
  tally run

  # Run one file, only @add scenarios, as JSON
  tally run features/calculator.feature --tags @add --format json

  # Run four scenarios at a time
  tally run -p 4`,
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

			res, err := a.runOnce(ctx, root, cfg, args, opts, nil)
			if err != nil {
				return err
			}
			if !res.Summary.OK() {
				return NewExitError(ExitFailed, "")
			}
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

// featurePaths expands args (or the configured features directory) into
// feature files.
func featurePaths(root string, cfg config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{filepath.Join(root, cfg.Features)}
	}
	var paths []string
	for _, arg := range args {
		found, err := feature.Discover(arg, cfg.Pattern)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

// runOnce discovers, runs, reports and records one run. onRecord, if set,
// receives the run's record whether or not it was saved.
func (a *app) runOnce(ctx context.Context, root string, cfg config.Config, args []string, opts runOptions, onRecord func(*runrecord.Record)) (*runner.Result, error) {
	paths, err := featurePaths(root, cfg, args)
	if err != nil {
		return nil, NewExitError(ExitUsage, "failed to find features: %v", err)
	}
	if len(paths) == 0 {
		return nil, NewExitError(ExitUsage, "no feature files found")
	}

	formatter, err := report.New(opts.format, a.stdout, report.Options{Width: terminalWidth(), Verbose: opts.expand})
	if err != nil {
		return nil, NewExitError(ExitUsage, "%v", err)
	}

	r := runner.New(
		runner.WithLogger(a.logger),
		runner.WithParallel(opts.parallel),
		runner.WithFilter(runner.ParseTags(opts.tags)),
		runner.WithScenarioCallback(formatter.Scenario),
	)

	res, err := r.RunFiles(ctx, paths)
	if err != nil {
		var perr *feature.ParseError
		if errors.As(err, &perr) {
			return nil, NewExitError(ExitParse, "%v", perr)
		}
		if res == nil {
			return nil, NewExitError(ExitFailed, "run failed: %v", err)
		}
		a.logger.Warn("run interrupted", "error", err)
	}

	if err := formatter.Finish(res); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	rec := runrecord.FromResult(res, paths, opts.tags)
	if !opts.noRecord && cfg.History.IsEnabled() {
		store := runrecord.NewStore(root)
		if err := store.Write(rec); err != nil {
			a.logger.Warn("failed to save run record", "error", err)
		} else if _, err := store.Prune(cfg.History.GetKeep()); err != nil {
			a.logger.Warn("failed to prune run records", "error", err)
		}
	}
	if onRecord != nil {
		onRecord(rec)
	}

	return res, nil
}
