package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates externally issued identity tokens and extracts the
// principal. Tokens are HMAC-signed by the identity provider with a
// shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type identityClaims struct {
	Role  string `json:"role"`
	Label string `json:"label"`
	jwt.RegisteredClaims
}

// Verify parses and validates a token, returning the principal.
func (v *Verifier) Verify(token string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*identityClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}

	role := Role(claims.Role)
	if role != RoleCustomer && role != RoleAgent {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	label := claims.Label
	if label == "" {
		label = claims.Subject
	}
	return &Principal{Subject: claims.Subject, Role: role, Label: label}, nil
}
