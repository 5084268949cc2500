package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret, subject, role, label string, expires time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"role":  role,
		"label": label,
		"exp":   expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyAgentToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, "agent-1", "agent", "Ana", time.Now().Add(time.Hour))

	principal, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", principal.Subject)
	assert.Equal(t, RoleAgent, principal.Role)
	assert.Equal(t, "Ana", principal.Label)
}

func TestVerifyLabelFallsBackToSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, "customer-1", "customer", "", time.Now().Add(time.Hour))

	principal, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "customer-1", principal.Label)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, "other-secret", "agent-1", "agent", "Ana", time.Now().Add(time.Hour)))
	assert.Error(t, err)

	_, err = v.Verify(signToken(t, testSecret, "agent-1", "agent", "Ana", time.Now().Add(-time.Hour)))
	assert.Error(t, err)

	_, err = v.Verify(signToken(t, testSecret, "agent-1", "superuser", "Ana", time.Now().Add(time.Hour)))
	assert.Error(t, err)

	_, err = v.Verify("not-a-token")
	assert.Error(t, err)
}
