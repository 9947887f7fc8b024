package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/steps"
	"github.com/pengelbrecht/tally/internal/tui"
)

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Drive a calculator interactively",
		Long: `Open an interactive calculator.

Type step phrases ("I add 5", "the result should be 12") or short forms:
  =N   seed the accumulator
  +N   add
  -N   subtract
  ?N   check the last result
  reset, quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(steps.Default())
		},
	}
}
