package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/tui"
)

// evalStep is one applied operation in eval's JSON output.
type evalStep struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newEvalCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "eval <op>...",
		Short: "Apply operations to a fresh calculator",
		Long: `Apply operations to a fresh calculator and print each outcome.

Each argument is a short form (=N seeds, +N adds, -N subtracts, ?N checks
the last result) or a quoted step phrase. Evaluation stops at the first error.

Note: arguments starting with - must follow --:
  tally eval -- =20 -15 ?5

Examples:
  tally eval =50 +70
  tally eval "I have entered 10 into the calculator" "I add 50"
  tally eval --json =1 +2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := tui.NewSession(nil)
			var results []evalStep
			var failed error

			for _, arg := range args {
				out, err := session.Eval(arg)
				step := evalStep{Input: arg, Output: out}
				if err != nil {
					step.Error = err.Error()
					failed = err
				}
				results = append(results, step)
				if !jsonOutput {
					if err != nil {
						fmt.Fprintf(a.stdout, "%s  ✗ %v\n", arg, err)
					} else {
						fmt.Fprintf(a.stdout, "%s  %s\n", arg, out)
					}
				}
				if err != nil {
					break
				}
			}

			if jsonOutput {
				payload := map[string]any{"value": session.Value(), "steps": results}
				enc := json.NewEncoder(a.stdout)
				if err := enc.Encode(payload); err != nil {
					return fmt.Errorf("failed to encode json: %w", err)
				}
			} else {
				fmt.Fprintf(a.stdout, "value: %d\n", session.Value())
			}

			if failed != nil {
				return NewExitError(ExitFailed, "%v", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
