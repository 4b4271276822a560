package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const testSecrets = `{
  "installed": {
    "client_id": "test-client-id.apps.googleusercontent.com",
    "client_secret": "test-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

type fakeArtifacts struct {
	recorded string
	resets   int
}

func (f *fakeArtifacts) RecordSignIn(email string) error {
	f.recorded = email
	return nil
}

func (f *fakeArtifacts) ResetAuthTokens() error {
	f.resets++
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeArtifacts, string) {
	t.Helper()
	dir := t.TempDir()
	secretsPath := filepath.Join(dir, "client_secrets.json")
	if err := os.WriteFile(secretsPath, []byte(testSecrets), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}

	artifacts := &fakeArtifacts{}
	tokensDir := filepath.Join(dir, "tokens")
	m, err := NewManager(secretsPath, tokensDir, artifacts, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, artifacts, tokensDir
}

func TestNewManagerParsesSecrets(t *testing.T) {
	m, _, _ := newTestManager(t)
	if m.config.ClientID != "test-client-id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", m.config.ClientID)
	}
	if len(m.config.Scopes) != len(Scopes) {
		t.Errorf("scopes = %v, want %v", m.config.Scopes, Scopes)
	}
}

func TestNewManagerMissingSecrets(t *testing.T) {
	if _, err := NewManager("/nonexistent/secrets.json", t.TempDir(), nil, nil); err == nil {
		t.Error("expected error for missing secrets file")
	}
}

func TestSignedInAndScopeMetadata(t *testing.T) {
	m, _, _ := newTestManager(t)
	if m.SignedIn() {
		t.Error("SignedIn() = true with no token")
	}
	if m.HasSendScope() {
		t.Error("HasSendScope() = true with no token")
	}

	if err := m.saveToken(defaultAccount, &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	if !m.SignedIn() {
		t.Error("SignedIn() = false after save")
	}
	if !m.HasSendScope() {
		t.Error("HasSendScope() = false, want gmail.send recorded")
	}
}

func TestTokenFileCarriesScopes(t *testing.T) {
	m, _, tokensDir := newTestManager(t)
	if err := m.saveToken(defaultAccount, &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("saveToken: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tokensDir, "google.json"))
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		t.Fatalf("parse token file: %v", err)
	}
	found := false
	for _, s := range tf.Scopes {
		if s == ScopeGmailSend {
			found = true
		}
	}
	if !found {
		t.Errorf("token scopes = %v, want gmail.send included", tf.Scopes)
	}
}

func TestSignOut(t *testing.T) {
	m, artifacts, _ := newTestManager(t)
	if err := m.saveToken(defaultAccount, &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("saveToken: %v", err)
	}

	if err := m.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if m.SignedIn() {
		t.Error("still signed in after SignOut")
	}
	if artifacts.resets != 1 {
		t.Errorf("auth artifact resets = %d, want 1", artifacts.resets)
	}

	// Signing out twice is fine.
	if err := m.SignOut(); err != nil {
		t.Errorf("second SignOut: %v", err)
	}
}

func TestAccessTokenWithoutToken(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.AccessToken(context.Background()); err == nil {
		t.Error("expected error when not signed in")
	}
}

func TestRecordIdentityNeverNil(t *testing.T) {
	m, artifacts, _ := newTestManager(t)

	// No stored token, so the identity lookup fails before any network
	// call. The result must still be usable without a nil check.
	ident := m.recordIdentity(context.Background())
	if ident == nil {
		t.Fatal("recordIdentity returned nil")
	}
	if ident.Email != "" {
		t.Errorf("Email = %q, want empty on failed lookup", ident.Email)
	}
	if artifacts.recorded != "" {
		t.Errorf("recorded sign-in = %q, want none on failed lookup", artifacts.recorded)
	}
}

func TestTokenPathSanitization(t *testing.T) {
	m, _, tokensDir := newTestManager(t)

	path := m.tokenPath("../../etc/passwd")
	if !strings.HasPrefix(path, filepath.Clean(tokensDir)) {
		t.Errorf("tokenPath escaped tokens dir: %q", path)
	}
}
