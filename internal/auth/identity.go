package auth

// Role is the verified caller role. Identity management itself lives in
// an external provider; this package only consumes its tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// Principal is the opaque verified identity attached to a request.
type Principal struct {
	Subject string
	Role    Role
	Label   string
}
