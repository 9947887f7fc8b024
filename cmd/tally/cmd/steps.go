package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/steps"
)

func newStepsCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the step phrases scenarios can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := steps.Default().Definitions()

			if jsonOutput {
				type row struct {
					Keyword string `json:"keyword"`
					Phrase  string `json:"phrase"`
					Pattern string `json:"pattern"`
				}
				rows := make([]row, 0, len(defs))
				for _, d := range defs {
					rows = append(rows, row{Keyword: d.Kind.String(), Phrase: d.Phrase, Pattern: d.Pattern()})
				}
				if err := json.NewEncoder(a.stdout).Encode(rows); err != nil {
					return fmt.Errorf("failed to encode json: %w", err)
				}
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("KEYWORD", "PHRASE")
			for _, d := range defs {
				t.Row(d.Kind.String(), d.Phrase)
			}
			_, err := fmt.Fprintln(a.stdout, t.Render())
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
