package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var logoutYes bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and delete the stored Google token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	bridge, storage, err := openBridge()
	if err != nil {
		return err
	}
	defer storage.Close()

	mgr, err := newAuthManager(bridge)
	if err != nil {
		return err
	}

	if !mgr.SignedIn() {
		fmt.Println("Not signed in.")
		return nil
	}

	if !logoutYes {
		confirmed := false
		prompt := huh.NewConfirm().
			Title("Sign out?").
			Description("The stored Google token will be deleted.").
			Value(&confirmed)
		if err := prompt.Run(); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := mgr.SignOut(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}
