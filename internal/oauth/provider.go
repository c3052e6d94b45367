// Package oauth wraps third-party identity providers used to sign in
// without a local password.
package oauth

import "context"

// Claims holds the verified identity returned by a provider.
type Claims struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
}

// Provider is an OAuth2 identity provider. PKCE is required: callers pass
// the code_challenge to AuthCodeURL and the matching verifier to Exchange.
type Provider interface {
	Name() string
	AuthCodeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*Claims, error)
}
