package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCConfig configures ID token verification
type OIDCConfig struct {
	// IssuerURL is the OIDC issuer, https://accounts.google.com for the
	// Google identity tokens the frontend sends.
	IssuerURL string
	// ClientID is the expected token audience
	ClientID string
	// HostedDomain, when set, restricts callers to one Google Workspace
	// domain via the hd claim.
	HostedDomain string
}

// OIDCVerifier validates ID tokens against the configured issuer
type OIDCVerifier struct {
	verifier     *oidc.IDTokenVerifier
	hostedDomain string
}

// NewOIDCVerifier discovers the issuer and builds a token verifier
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier:     provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		hostedDomain: cfg.HostedDomain,
	}, nil
}

// Verify validates the token signature, audience and expiry, and extracts
// the verified email claim.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		HostedDomain  string `json:"hd"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims: %v", ErrInvalidToken, err)
	}

	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%w: missing verified email claim", ErrInvalidToken)
	}
	if v.hostedDomain != "" && !strings.EqualFold(claims.HostedDomain, v.hostedDomain) {
		return nil, fmt.Errorf("%w: wrong hosted domain", ErrInvalidToken)
	}

	return &Identity{Email: claims.Email}, nil
}
