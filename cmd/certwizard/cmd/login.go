package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google to authorize sending mail",
	Long: `Open a browser to sign in with Google. certwizard requests the
gmail.send scope so the certificate service can mail on your behalf;
grant it or sends will be rejected.

Signing in again replaces the stored token, which is the fix when the
wizard reports missing Gmail permissions.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	bridge, storage, err := openBridge()
	if err != nil {
		return err
	}
	defer storage.Close()

	mgr, err := newAuthManager(bridge)
	if err != nil {
		return err
	}

	ident, err := mgr.SignIn(cmd.Context())
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	if ident.Email != "" {
		fmt.Printf("Signed in as %s\n", ident.Email)
	} else {
		fmt.Println("Signed in.")
	}

	if !mgr.HasSendScope() {
		fmt.Println()
		fmt.Println("Warning: the gmail.send scope was not granted. Sending will")
		fmt.Println("fail until you sign in again and allow it.")
	}
	return nil
}
