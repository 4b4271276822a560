package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certwizard/certwizard/internal/update"
)

var updateForce bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check whether a newer certwizard release is available",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "skip the check cache")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	checker := update.NewChecker(cfg.HomeDir)

	info, err := checker.Check(cmd.Context(), version, updateForce)
	if err != nil {
		return err
	}
	if info == nil {
		fmt.Printf("certwizard %s is up to date.\n", version)
		return nil
	}

	fmt.Printf("certwizard %s is available (you have %s).\n", info.LatestVersion, info.CurrentVersion)
	if info.DownloadURL != "" {
		fmt.Printf("Download: %s (%d bytes)\n", info.DownloadURL, info.Size)
	} else {
		fmt.Println("No prebuilt binary for this platform; see the releases page.")
	}
	return nil
}
