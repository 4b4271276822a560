package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, sign-in state, and any saved session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Printf("Home:      %s\n", cfg.HomeDir)
	fmt.Printf("Config:    %s\n", cfg.ConfigFilePath())
	fmt.Printf("Service:   %s\n", cfg.Backend.URL)

	bridge, storage, err := openBridge()
	if err != nil {
		return err
	}
	defer storage.Close()

	fmt.Println()
	if cfg.OAuth.ClientSecrets == "" {
		fmt.Println("Auth:      not configured (run `certwizard setup`)")
	} else {
		mgr, err := newAuthManager(bridge)
		if err != nil {
			return err
		}
		switch {
		case !mgr.SignedIn():
			fmt.Println("Auth:      signed out (run `certwizard login`)")
		case !mgr.HasSendScope():
			fmt.Println("Auth:      signed in, but the gmail.send scope is missing.")
			fmt.Println("           Run `certwizard login` and grant it.")
		default:
			fmt.Println("Auth:      signed in with send permission")
		}
	}

	snap, err := bridge.Resume()
	if err != nil {
		return fmt.Errorf("read saved session: %w", err)
	}

	fmt.Println()
	if !snap.HasSession() {
		fmt.Println("Session:   none")
		return nil
	}
	fmt.Println("Session:   saved (resumed automatically by `certwizard wizard`)")
	if snap.TemplateName != "" {
		fmt.Printf("  Template:     %s\n", snap.TemplateName)
		fmt.Printf("  Placeholders: %s\n", strings.Join(snap.Placeholders, ", "))
	}
	if snap.CSVName != "" {
		fmt.Printf("  Data:         %s\n", snap.CSVName)
		fmt.Printf("  Columns:      %s\n", strings.Join(snap.Columns, ", "))
	}
	return nil
}
