package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/report"
	"github.com/pengelbrecht/tally/internal/runrecord"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
		remove     string
		clearAll   bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show recorded runs, newest first. With a run ID (or "latest"),
show that run's failures.

Examples:
  tally history
  tally history -n 5
  tally history latest --json
  tally history --rm 20260301T120000.000000000
  tally history --clear`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			store := runrecord.NewStore(root)

			switch {
			case remove != "":
				return a.removeRecord(store, remove)
			case clearAll:
				n, err := store.Prune(0)
				if err != nil {
					return fmt.Errorf("failed to clear runs: %w", err)
				}
				fmt.Fprintf(a.stdout, "Removed %d run(s) from %s\n", n, store.Dir())
				return nil
			}

			if len(args) == 1 {
				return a.showRecord(store, args[0], jsonOutput)
			}

			ids, err := store.List()
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if limit > 0 && len(ids) > limit {
				ids = ids[:limit]
			}

			records := make([]*runrecord.Record, 0, len(ids))
			for _, id := range ids {
				rec, err := store.Read(id)
				if err != nil {
					a.logger.Warn("skipping unreadable run record", "id", id, "error", err)
					continue
				}
				records = append(records, rec)
			}

			if jsonOutput {
				if err := json.NewEncoder(a.stdout).Encode(records); err != nil {
					return fmt.Errorf("failed to encode json: %w", err)
				}
				return nil
			}

			if len(records) == 0 {
				fmt.Fprintln(a.stdout, "No runs recorded yet.")
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("RUN", "WHEN", "RESULT")
			for _, rec := range records {
				t.Row(rec.ID, humanize.Time(rec.StartedAt), report.SummaryLine(rec.Summary))
			}
			_, err = fmt.Fprintln(a.stdout, t.Render())
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&remove, "rm", "", "delete the run with this ID")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every recorded run")
	cmd.MarkFlagsMutuallyExclusive("rm", "clear")
	return cmd
}

func (a *app) removeRecord(store *runrecord.Store, id string) error {
	if err := runrecord.ValidID(id); err != nil {
		return NewExitError(ExitUsage, "%v", err)
	}
	if !store.Exists(id) {
		return NewExitError(ExitUsage, "run %s not found", id)
	}
	if err := store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	fmt.Fprintf(a.stdout, "Removed run %s\n", id)
	return nil
}

func (a *app) showRecord(store *runrecord.Store, id string, jsonOutput bool) error {
	var (
		rec *runrecord.Record
		err error
	)
	if id == "latest" {
		rec, err = store.Latest()
	} else {
		rec, err = store.Read(id)
	}
	if errors.Is(err, runrecord.ErrNotFound) || errors.Is(err, runrecord.ErrInvalidID) {
		return NewExitError(ExitUsage, "run %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read run: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}

	fmt.Fprintf(a.stdout, "Run %s (%s, took %s)\n", rec.ID, humanize.Time(rec.StartedAt), rec.Duration)
	if rec.Tags != "" {
		fmt.Fprintf(a.stdout, "Tags: %s\n", rec.Tags)
	}
	fmt.Fprintln(a.stdout, report.SummaryLine(rec.Summary))
	for _, f := range rec.Failures {
		fmt.Fprintf(a.stdout, "\n  %s:%d %s [%s]\n", f.Feature, f.Line, f.Scenario, f.Status)
		if f.Step != "" {
			fmt.Fprintf(a.stdout, "    %s\n", f.Step)
		}
		if f.Error != "" {
			fmt.Fprintf(a.stdout, "    %s\n", f.Error)
		}
	}
	return nil
}
