package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/config"
)

const sampleFeature = `Feature: Calculator
	In order to avoid silly mistakes
	I want to be told the sum and difference of two numbers

Scenario: Add two numbers
	Given I have entered 50 into the calculator
	When I add 70
	Then the result should be 120

Scenario: Subtract a number
	Given I have entered 20 into the calculator
	When I subtract 15
	Then the result should be 5
`

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create .tally/ and a sample feature",
		Long: `Create .tally/config.json in the current directory (or --dir) and,
if the features directory does not exist yet, a sample calculator.feature.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.dir
			if root == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return NewExitError(ExitConfig, "failed to get working directory: %v", err)
				}
				root = cwd
			}

			cfgPath := config.Path(root)
			if _, err := os.Stat(cfgPath); err == nil {
				return NewExitError(ExitConfig, "%s already exists", cfgPath)
			}
			cfg := config.Default()
			if err := config.Save(cfgPath, cfg); err != nil {
				return NewExitError(ExitConfig, "failed to write config: %v", err)
			}

			ignore := filepath.Join(root, config.Dir, ".gitignore")
			if err := os.WriteFile(ignore, []byte("records/\nrecords.lock\n"), 0o644); err != nil {
				return NewExitError(ExitConfig, "failed to write .gitignore: %v", err)
			}

			featuresDir := filepath.Join(root, cfg.Features)
			if _, err := os.Stat(featuresDir); errors.Is(err, os.ErrNotExist) {
				if err := os.MkdirAll(featuresDir, 0o755); err != nil {
					return NewExitError(ExitConfig, "failed to create features directory: %v", err)
				}
				sample := filepath.Join(featuresDir, "calculator.feature")
				if err := os.WriteFile(sample, []byte(sampleFeature), 0o644); err != nil {
					return NewExitError(ExitConfig, "failed to write sample feature: %v", err)
				}
				fmt.Fprintf(a.stdout, "Created %s\n", sample)
			}

			fmt.Fprintln(a.stdout, "Initialized .tally/")
			return nil
		},
	}
}
