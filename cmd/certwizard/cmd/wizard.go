package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/certwizard/certwizard/internal/auth"
	"github.com/certwizard/certwizard/internal/backend"
	"github.com/certwizard/certwizard/internal/previewer"
	"github.com/certwizard/certwizard/internal/session"
	"github.com/certwizard/certwizard/internal/tui"
	"github.com/certwizard/certwizard/internal/wizard"
)

var wizardFresh bool

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Run the interactive certificate mailing wizard",
	Long: `Run the interactive wizard: upload a certificate template, upload
recipient data, map placeholders to columns, then preview and send.

A previous session's uploads are resumed automatically; pass --fresh
to discard them and start over.`,
	Args: cobra.NoArgs,
	RunE: runWizard,
}

func init() {
	wizardCmd.Flags().BoolVar(&wizardFresh, "fresh", false, "discard the saved session and start over")
	rootCmd.AddCommand(wizardCmd)
}

// signedOut is the token provider used when OAuth is not configured.
// The wizard still works up to the send step.
type signedOut struct{}

func (signedOut) SignedIn() bool { return false }

func (signedOut) AccessToken(context.Context) (string, error) {
	return "", errors.New("not signed in")
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	bridge, storage, err := openBridge()
	if err != nil {
		return err
	}
	defer storage.Close()

	if wizardFresh {
		if err := bridge.Clear(); err != nil {
			return fmt.Errorf("clear saved session: %w", err)
		}
	}

	client := backend.NewClient(cfg.Backend.URL,
		backend.WithLogger(logger),
		backend.WithRateLimit(cfg.Backend.RateLimitQPS),
	)

	sink := previewer.New(cfg.PreviewsDir(), logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := sink.Shutdown(shutdownCtx); err != nil {
			logger.Warn("preview server shutdown failed", "error", err)
		}
	}()

	store := wizard.NewStore()
	if cfg.Wizard.EventName != "" {
		store.Apply(wizard.Patch{EventName: &cfg.Wizard.EventName})
	}
	if cfg.Wizard.SenderName != "" {
		store.Apply(wizard.Patch{SenderName: &cfg.Wizard.SenderName})
	}

	engine := wizard.NewEngine(store, client, bridge, sink, logger)
	neg := wizard.NewNegotiator(store, client, logger)

	resumeSession(engine, bridge)

	var tokens tui.TokenProvider = signedOut{}
	identity := ""
	if cfg.OAuth.ClientSecrets != "" {
		mgr, err := newAuthManager(bridge)
		if err != nil {
			return err
		}
		tokens = mgr
		identity = fetchIdentity(ctx, mgr)
	}

	model := tui.New(engine, neg, tokens, tui.Options{
		Version:  version,
		Identity: identity,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run wizard: %w", err)
	}
	return nil
}

// resumeSession restores durable upload identifiers from a previous
// run and fast-forwards the engine past the completed steps.
func resumeSession(engine *wizard.Engine, bridge *session.Bridge) {
	snap, err := bridge.Resume()
	if err != nil {
		logger.Warn("resume saved session failed", "error", err)
		return
	}
	if !snap.HasSession() {
		return
	}

	store := engine.Store()
	if snap.TemplateName != "" {
		store.Apply(wizard.Patch{
			TemplateName: &snap.TemplateName,
			Placeholders: &snap.Placeholders,
		})
		engine.SetStep(wizard.StepCSV)
	}
	if snap.TemplateName != "" && snap.CSVName != "" {
		store.Apply(wizard.Patch{
			CSVName: &snap.CSVName,
			Columns: &snap.Columns,
		})
		engine.SetStep(wizard.StepMapping)
	}
	logger.Info("resumed saved session",
		"template", snap.TemplateName, "csv", snap.CSVName)
}

// fetchIdentity returns the signed-in account email for the header,
// best-effort and bounded so an offline start is not delayed.
func fetchIdentity(ctx context.Context, mgr *auth.Manager) string {
	if !mgr.SignedIn() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ident, err := mgr.Identity(ctx)
	if err != nil {
		logger.Debug("fetch identity failed", "error", err)
		return ""
	}
	return ident.Email
}
