package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/certwizard/certwizard/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup for first-run configuration",
	Long: `Interactive setup to configure certwizard for first use.

This command helps you:
  1. Point certwizard at the certificate service
  2. Locate or configure Google OAuth credentials
  3. Pre-fill the event and sender names the wizard starts with

Run this once after installing certwizard to get started quickly.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if err := cfg.EnsureHomeDir(); err != nil {
		return fmt.Errorf("create home directory: %w", err)
	}

	serviceURL := cfg.Backend.URL
	secretsPath, err := setupOAuthSecrets()
	if err != nil {
		return err
	}
	eventName := cfg.Wizard.EventName
	senderName := cfg.Wizard.SenderName

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Certificate service URL").
				Description("Where the certificate service is running.").
				Value(&serviceURL),
			huh.NewInput().
				Title("Default event name").
				Description("Pre-filled in the wizard; blank keeps the built-in default.").
				Value(&eventName),
			huh.NewInput().
				Title("Default sender name").
				Description("Pre-filled in the wizard; optional.").
				Value(&senderName),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if serviceURL != "" {
		cfg.Backend.URL = strings.TrimSpace(serviceURL)
	}
	if secretsPath != "" {
		cfg.OAuth.ClientSecrets = secretsPath
	}
	cfg.Wizard.EventName = strings.TrimSpace(eventName)
	cfg.Wizard.SenderName = strings.TrimSpace(senderName)

	if err := saveConfig(); err != nil {
		return err
	}
	fmt.Printf("Configuration saved to %s\n", cfg.ConfigFilePath())

	fmt.Println()
	fmt.Println("Setup complete! Next steps:")
	fmt.Println()
	fmt.Println("  1. Sign in with Google:")
	fmt.Println("     certwizard login")
	fmt.Println()
	fmt.Println("  2. Run the wizard:")
	fmt.Println("     certwizard wizard")
	fmt.Println()
	fmt.Println("For more help: certwizard --help")

	return nil
}

func saveConfig() error {
	path := cfgFile
	if path == "" {
		path = cfg.ConfigFilePath()
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// setupOAuthSecrets finds or asks for the Google client secrets file.
// Returns the chosen path, or "" to leave the config unchanged.
func setupOAuthSecrets() (string, error) {
	if cfg.OAuth.ClientSecrets != "" {
		keep := true
		prompt := huh.NewConfirm().
			Title("OAuth credentials already configured").
			Description(cfg.OAuth.ClientSecrets).
			Affirmative("Keep").
			Negative("Replace").
			Value(&keep)
		if err := prompt.Run(); err != nil {
			return "", err
		}
		if keep {
			return "", nil
		}
	}

	candidates := findClientSecrets()
	const manual = "__manual__"
	const skip = "__skip__"

	if len(candidates) > 0 {
		options := make([]huh.Option[string], 0, len(candidates)+2)
		for _, path := range candidates {
			options = append(options, huh.NewOption(path, path))
		}
		options = append(options,
			huh.NewOption("Enter a path manually", manual),
			huh.NewOption("Skip for now", skip),
		)

		choice := candidates[0]
		sel := huh.NewSelect[string]().
			Title("Found OAuth credentials").
			Options(options...).
			Value(&choice)
		if err := sel.Run(); err != nil {
			return "", err
		}
		switch choice {
		case skip:
			return "", nil
		case manual:
			// Fall through to the path prompt.
		default:
			return choice, nil
		}
	}

	path := ""
	input := huh.NewInput().
		Title("Path to client_secret.json").
		Description("Leave blank to skip; you can add it to config.toml later.").
		Value(&path)
	if err := input.Run(); err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", path)
	}
	return path, nil
}

// findClientSecrets looks for client_secret*.json files in common
// locations.
func findClientSecrets() []string {
	var found []string
	home, _ := os.UserHomeDir()

	patterns := []string{
		filepath.Join(home, "Downloads", "client_secret*.json"),
		"client_secret*.json",
		filepath.Join(cfg.HomeDir, "client_secret*.json"),
	}

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			abs, _ := filepath.Abs(m)
			if !seen[abs] {
				seen[abs] = true
				found = append(found, abs)
			}
		}
	}

	return found
}
