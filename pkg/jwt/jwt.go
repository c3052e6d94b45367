// Package jwt signs the short-lived state tokens used by the OAuth login flow.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing state token")
)

const issuer = "go-inventory-pos"

// StateClaims travel in an HttpOnly cookie between the OAuth redirect and
// the callback. Nonce is echoed back by the provider as the state parameter;
// Verifier is the PKCE code verifier.
type StateClaims struct {
	Nonce    string `json:"nonce"`
	Verifier string `json:"verifier"`
	jwt.RegisteredClaims
}

// GenerateState creates a signed state token valid for ttl.
func GenerateState(secret []byte, nonce, verifier string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &StateClaims{
		Nonce:    nonce,
		Verifier: verifier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseState validates signature, expiry and issuer of a state token.
func ParseState(secret []byte, tokenString string) (*StateClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*StateClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
