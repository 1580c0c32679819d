package session

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// VerifierConfig names the OIDC issuer whose ID tokens may be used as
// gateway bearer tokens.
type VerifierConfig struct {
	IssuerURL string
	ClientID  string
}

// Verifier checks ID tokens against the issuer's published keys before a
// session is saved.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer. Returns nil if IssuerURL is empty
// (verification disabled).
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.IssuerURL == "" {
		return nil, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider init: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})}, nil
}

// Verify checks the session's token and fills user and expiry from the
// verified claims. A nil Verifier accepts every session.
func (v *Verifier) Verify(ctx context.Context, s *Session) error {
	if v == nil {
		return nil
	}
	idToken, err := v.verifier.Verify(ctx, s.Token)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}

	var claims struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return fmt.Errorf("token claims: %w", err)
	}

	s.User.ID = idToken.Subject
	s.ExpiresAt = idToken.Expiry
	if claims.Name != "" {
		s.User.Name = claims.Name
	}
	if claims.Email != "" {
		s.User.Email = claims.Email
	}
	return nil
}
