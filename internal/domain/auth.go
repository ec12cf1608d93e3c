package domain

import "time"

// ClientRole is the permission set of an API client.
type ClientRole string

const (
	ClientRoleViewer   ClientRole = "VIEWER"
	ClientRoleOperator ClientRole = "OPERATOR"
	ClientRoleAdmin    ClientRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r ClientRole) Valid() bool {
	switch r {
	case ClientRoleViewer, ClientRoleOperator, ClientRoleAdmin:
		return true
	}
	return false
}

// APIClient is a machine caller such as maintenance-window tooling or the dashboard backend.
type APIClient struct {
	ID         string
	SecretHash string
	Role       ClientRole
}

// Token represents issued authentication token metadata.
type Token struct {
	ClientID  string
	Role      ClientRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
