package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the saved wizard session",
	Long: `Discard the saved wizard session: the uploaded template and data
handles and the placeholder list. The stored Google token is kept; use
logout for that.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	bridge, storage, err := openBridge()
	if err != nil {
		return err
	}
	defer storage.Close()

	snap, err := bridge.Resume()
	if err != nil {
		return fmt.Errorf("read saved session: %w", err)
	}
	if !snap.HasSession() {
		fmt.Println("No saved session.")
		return nil
	}

	if !resetYes {
		confirmed := false
		prompt := huh.NewConfirm().
			Title("Discard the saved session?").
			Description("You will need to upload the template and data again.").
			Value(&confirmed)
		if err := prompt.Run(); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := bridge.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Println("Saved session discarded.")
	return nil
}
