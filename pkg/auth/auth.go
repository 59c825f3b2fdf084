// Package auth verifies bearer identity tokens and exposes the caller's
// identity to the rest of the application.
//
// The production verifier validates Google-issued ID tokens with OIDC
// discovery; StaticVerifier backs tests and local development.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a token fails verification
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is the verified caller
type Identity struct {
	Email string
}

// Verifier validates a raw bearer token and returns the caller's identity
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// StaticVerifier maps fixed tokens to emails. Test and dev use only.
type StaticVerifier struct {
	Tokens map[string]string
}

// Verify looks the token up in the static map
func (v *StaticVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	email, ok := v.Tokens[rawToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &Identity{Email: email}, nil
}
