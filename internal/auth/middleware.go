package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

const principalKey = "auth.principal"

// Middleware verifies the bearer token and stores the principal on the
// request context.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware constructs the middleware.
func NewMiddleware(verifier *Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handle is the fiber handler enforcing a verified identity.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return apperrors.NewUnauthorized("authorization header must be a bearer token")
	}
	principal, err := m.verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext returns the verified principal, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok
}

// RequireRole rejects requests whose principal does not hold the role.
func RequireRole(role Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("identity required")
		}
		if principal.Role != role {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
