// Package auth handles the Google OAuth2 session for sending mail.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeGmailSend is the scope the certificate service needs to mail on
// the operator's behalf.
const ScopeGmailSend = "https://www.googleapis.com/auth/gmail.send"

// Scopes requested at sign-in: mail sending plus identity.
var Scopes = []string{
	ScopeGmailSend,
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// defaultAccount names the token file before the account email is known.
const defaultAccount = "google"

// Artifacts receives auth lifecycle events so session state stays in
// step with the token files.
type Artifacts interface {
	RecordSignIn(email string) error
	ResetAuthTokens() error
}

// Manager handles OAuth2 token acquisition and storage.
type Manager struct {
	config    *oauth2.Config
	tokensDir string
	artifacts Artifacts
	logger    *slog.Logger
}

// NewManager creates a manager from a Google client secrets file.
func NewManager(clientSecretsPath, tokensDir string, artifacts Artifacts, logger *slog.Logger) (*Manager, error) {
	data, err := os.ReadFile(clientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}

	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		config:    config,
		tokensDir: tokensDir,
		artifacts: artifacts,
		logger:    logger,
	}, nil
}

const (
	redirectPort = "8089"
	callbackPath = "/callback"
)

// SignIn runs the browser authorization flow and stores the token.
// A fresh sign-in clears stale auth artifacts first, so a re-auth
// after a scope rejection starts clean. On success the returned
// identity is never nil; a zero Email means the lookup failed.
func (m *Manager) SignIn(ctx context.Context) (*Identity, error) {
	if m.artifacts != nil {
		if err := m.artifacts.ResetAuthTokens(); err != nil {
			m.logger.Warn("reset auth artifacts failed", "error", err)
		}
	}

	token, err := m.browserFlow(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.saveToken(defaultAccount, token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	return m.recordIdentity(ctx), nil
}

// recordIdentity fetches the signed-in account and records it in the
// auth artifacts. The fetch is best-effort: the token is saved either
// way, and a failed fetch yields a zero-value identity, never nil, so
// callers can read Email without a nil check.
func (m *Manager) recordIdentity(ctx context.Context) *Identity {
	ident, err := m.Identity(ctx)
	if err != nil {
		m.logger.Warn("fetch identity failed", "error", err)
		return &Identity{}
	}
	if m.artifacts != nil {
		if err := m.artifacts.RecordSignIn(ident.Email); err != nil {
			m.logger.Warn("record sign-in failed", "error", err)
		}
	}
	return ident
}

// SignOut deletes the stored token and clears the auth artifacts.
func (m *Manager) SignOut() error {
	if err := m.deleteToken(defaultAccount); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if m.artifacts != nil {
		if err := m.artifacts.ResetAuthTokens(); err != nil {
			return fmt.Errorf("reset auth artifacts: %w", err)
		}
	}
	return nil
}

// SignedIn reports whether a token is stored.
func (m *Manager) SignedIn() bool {
	_, err := m.loadToken(defaultAccount)
	return err == nil
}

// HasSendScope reports whether the stored token was authorized with
// the gmail.send scope. Tokens without scope metadata report false, so
// the wizard can prompt for re-auth before wasting a send attempt.
func (m *Manager) HasSendScope() bool {
	tf, err := m.loadTokenFile(defaultAccount)
	if err != nil {
		return false
	}
	for _, s := range tf.Scopes {
		if s == ScopeGmailSend {
			return true
		}
	}
	return false
}

// AccessToken returns a live bearer token, refreshing if needed.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	token, err := m.loadToken(defaultAccount)
	if err != nil {
		return "", fmt.Errorf("not signed in: %w", err)
	}

	ts := m.config.TokenSource(ctx, token)
	fresh, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := m.saveToken(defaultAccount, fresh); err != nil {
			m.logger.Warn("failed to save refreshed token", "error", err)
		}
	}
	return fresh.AccessToken, nil
}

// TokenSource returns an auto-refreshing token source.
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := m.loadToken(defaultAccount)
	if err != nil {
		return nil, fmt.Errorf("not signed in: %w", err)
	}
	return m.config.TokenSource(ctx, token), nil
}

// newCallbackHandler returns an HTTP handler that processes the OAuth callback.
func (m *Manager) newCallbackHandler(expectedState string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != expectedState {
			errChan <- fmt.Errorf("state mismatch: possible CSRF attack")
			fmt.Fprintf(w, "Error: state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			fmt.Fprintf(w, "Error: no authorization code received")
			return
		}
		codeChan <- code
		fmt.Fprintf(w, "Authorization successful! You can close this window.")
	}
}

// browserFlow opens a browser for OAuth authorization.
func (m *Manager) browserFlow(ctx context.Context) (*oauth2.Token, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle(callbackPath, m.newCallbackHandler(state, codeChan, errChan))
	server := &http.Server{Addr: "localhost:" + redirectPort, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	defer func() { _ = server.Shutdown(ctx) }()

	m.config.RedirectURL = "http://localhost:" + redirectPort + callbackPath
	authURL := m.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Printf("Opening browser for authorization...\n")
	fmt.Printf("If browser doesn't open, visit:\n%s\n\n", authURL)

	if err := openBrowser(authURL); err != nil {
		m.logger.Warn("failed to open browser", "error", err)
	}

	select {
	case code := <-codeChan:
		return m.config.Exchange(ctx, code)
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// tokenFile wraps an OAuth2 token with the scopes it was authorized
// with, so a missing gmail.send grant is detectable without an API call.
type tokenFile struct {
	oauth2.Token
	Scopes []string `json:"scopes,omitempty"`
}

func (m *Manager) loadToken(account string) (*oauth2.Token, error) {
	tf, err := m.loadTokenFile(account)
	if err != nil {
		return nil, err
	}
	return &tf.Token, nil
}

func (m *Manager) loadTokenFile(account string) (*tokenFile, error) {
	data, err := os.ReadFile(m.tokenPath(account))
	if err != nil {
		return nil, err
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}
	return &tf, nil
}

func (m *Manager) saveToken(account string, token *oauth2.Token) error {
	if err := os.MkdirAll(m.tokensDir, 0700); err != nil {
		return err
	}

	tf := tokenFile{
		Token:  *token,
		Scopes: m.config.Scopes,
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.tokenPath(account), data, 0600)
}

func (m *Manager) deleteToken(account string) error {
	err := os.Remove(m.tokenPath(account))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// tokenPath returns the path to the token file for an account name.
// The name is sanitized to prevent path traversal.
func (m *Manager) tokenPath(account string) string {
	safe := strings.ReplaceAll(account, "/", "_")
	safe = strings.ReplaceAll(safe, "\\", "_")
	safe = strings.ReplaceAll(safe, "..", "_")

	path := filepath.Join(m.tokensDir, safe+".json")
	cleanPath := filepath.Clean(path)

	if !strings.HasPrefix(cleanPath, filepath.Clean(m.tokensDir)) {
		return filepath.Join(m.tokensDir, fmt.Sprintf("%x.json", sha256.Sum256([]byte(account))))
	}
	return cleanPath
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
