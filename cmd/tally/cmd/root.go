// Package cmd implements the tally command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitUsage   = 2
	ExitConfig  = 3
	ExitParse   = 4
)

// ExitError carries a process exit code with its message.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// NewExitError formats an ExitError.
func NewExitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// app holds state shared by every subcommand of one invocation.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	dir     string
	verbose bool
	logger  *slog.Logger
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	root := &cobra.Command{
		Use:   "tally",
		Short: "Run calculator scenarios written in plain language",
		Long: `tally runs Given/When/Then scenarios against an integer calculator.

Scenarios live in .feature files. Each scenario gets a fresh calculator,
and every step line is matched against a fixed table of phrases:

  Given I have entered {n} into the calculator
  When I add {n}
  When I subtract {n}
  Then the result should be {n}`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", "", "project directory (default: nearest directory containing .tally)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newInitCmd(a),
		newRunCmd(a),
		newEvalCmd(a),
		newStepsCmd(a),
		newWatchCmd(a),
		newReplCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
		newUpgradeCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Msg != "" {
			fmt.Fprintf(stderr, "Error: %s\n", exitErr.Msg)
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsage
}

// projectRoot returns --dir if given, otherwise the nearest ancestor of the
// working directory containing .tally, otherwise the working directory.
func (a *app) projectRoot() (string, error) {
	if a.dir != "" {
		return filepath.Abs(a.dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for dir := cwd; ; {
		if info, err := os.Stat(filepath.Join(dir, config.Dir)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// loadConfig resolves the project root and reads its config, falling back
// to defaults when none exists.
func (a *app) loadConfig() (string, config.Config, error) {
	root, err := a.projectRoot()
	if err != nil {
		return "", config.Config{}, NewExitError(ExitConfig, "failed to detect project root: %v", err)
	}
	cfg, err := config.LoadOrDefault(config.Path(root))
	if err != nil {
		return "", config.Config{}, NewExitError(ExitConfig, "failed to load config: %v", err)
	}
	return root, cfg, nil
}
