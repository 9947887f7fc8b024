package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pengelbrecht/tally/internal/update"
)

func newUpgradeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade tally to the latest version",
		Long:  `Upgrade tally to the latest version by downloading and installing the newest release.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "Current version: %s\n", Version)

			switch update.DetectInstallMethod() {
			case update.InstallHomebrew:
				fmt.Fprintln(a.stdout, "\ntally was installed via Homebrew.")
				fmt.Fprintln(a.stdout, "Run: brew upgrade tally")
				return nil
			case update.InstallGo:
				fmt.Fprintln(a.stdout, "\ntally was installed with go install.")
				fmt.Fprintf(a.stdout, "Run: go install github.com/%s/cmd/tally@latest\n", update.Repository)
				return nil
			}

			fmt.Fprintln(a.stdout, "Checking for updates...")

			release, hasUpdate, err := update.CheckForUpdate(Version)
			if err != nil {
				return NewExitError(ExitFailed, "failed to check for updates: %v", err)
			}
			if release == nil {
				fmt.Fprintln(a.stdout, "No releases published yet.")
				return nil
			}
			if !hasUpdate {
				if !update.IsRelease(Version) {
					fmt.Fprintf(a.stdout, "Development build; latest release is %s.\n", release.Version)
					return nil
				}
				fmt.Fprintln(a.stdout, "Already at latest version.")
				return nil
			}

			fmt.Fprintf(a.stdout, "Updating to %s...\n", release.Version)
			if err := update.Update(Version); err != nil {
				return NewExitError(ExitFailed, "update failed: %v", err)
			}

			fmt.Fprintf(a.stdout, "Successfully updated to %s\n", release.Version)
			return nil
		},
	}
}
