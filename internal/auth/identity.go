package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuer = "https://accounts.google.com"

// Identity is the signed-in Google account.
type Identity struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Identity fetches the account profile from the OIDC userinfo endpoint.
func (m *Manager) Identity(ctx context.Context) (*Identity, error) {
	ts, err := m.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer: %w", err)
	}

	userInfo, err := provider.UserInfo(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}

	var ident Identity
	if err := userInfo.Claims(&ident); err != nil {
		return nil, fmt.Errorf("parse userinfo claims: %w", err)
	}
	if ident.Email == "" {
		ident.Email = userInfo.Email
	}
	return &ident, nil
}
