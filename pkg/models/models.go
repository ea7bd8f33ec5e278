// Package models holds the data-transfer types shared by the auth, database,
// and Redfish API layers.
package models

import "time"

// Role names the three fixed privilege levels design/041_CDU_Gateway_Identity_Store.md §4.J defines.
// These match the Redfish RoleId values emitted on the wire, since the
// account/session payloads serialize this field directly.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleOperator      Role = "Operator"
	RoleReadOnly      Role = "ReadOnly"
)

// Privileges returns the fixed privilege set design/041_CDU_Gateway_Identity_Store.md §4.J's role table
// grants r.
func (r Role) Privileges() []string {
	switch r {
	case RoleAdministrator:
		return []string{"Login", "ConfigureManager", "ConfigureUsers", "ConfigureComponents", "ConfigureSelf"}
	case RoleOperator:
		return []string{"Login", "ConfigureSelf", "ConfigureComponents"}
	case RoleReadOnly:
		return []string{"Login", "ConfigureSelf"}
	default:
		return nil
	}
}

// HasPrivilege reports whether r carries the named privilege.
func (r Role) HasPrivilege(name string) bool {
	for _, p := range r.Privileges() {
		if p == name {
			return true
		}
	}
	return false
}

// Account is a Redfish AccountService account (component J).
type Account struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	Locked       bool      `json:"locked" db:"locked"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultAdminID is the id seeded on first start (design/041_CDU_Gateway_Identity_Store.md §4.J) and the one
// id the API refuses to let anyone delete (design/047_CDU_Gateway_Error_Handling.md §7).
const DefaultAdminID int64 = 1

// DefaultAdminUsername/Password are the seeded administrator's credentials.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Session is a Redfish SessionService session (component J). It carries its
// own denormalized username/role rather than a foreign key, matching
// design/041_CDU_Gateway_Identity_Store.md §4.J's "persist (id, token, user, role, expiry)" wording: a
// session must keep working even if the account is later renamed, and
// check_request never needs a join to authorize a bearer token.
type Session struct {
	ID        int       `json:"id" db:"id"`
	Token     string    `json:"-" db:"token"`
	Username  string    `json:"username" db:"username"`
	Role      Role      `json:"role" db:"role"`
	ExpiresAt time.Time `json:"-" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SessionTTL is the fixed session lifetime design/041_CDU_Gateway_Identity_Store.md §4.J names (300s).
const SessionTTL = 300 * time.Second

// CertificateKind distinguishes the two certificate rows component J keeps:
// the server's own HTTPS certificate, and the trusted root used to verify
// client certificates when SecurityPolicy.VerifyCertificate is set.
type CertificateKind string

const (
	CertificateServer CertificateKind = "server"
	CertificateRoot   CertificateKind = "root"
)

// Certificate is one row of the certificates table: a PEM certificate plus
// its private key (server kind only; the root kind has no key, it is a
// trust anchor, not a host identity).
type Certificate struct {
	Kind       CertificateKind `json:"-" db:"kind"`
	CertPEM    string          `json:"CertificateString" db:"cert_pem"`
	KeyPEM     string          `json:"-" db:"key_pem"`
	UpdatedAt  time.Time       `json:"-" db:"updated_at"`
}

// SecurityPolicy is the single-row TLS client-verification toggle
// design/042_CDU_Gateway_HTTP_Front_End.md §4.L reads ("If the effective SecurityPolicy.VerifyCertificate=true...").
type SecurityPolicy struct {
	VerifyCertificate bool      `json:"VerifyCertificate" db:"verify_certificate"`
	UpdatedAt         time.Time `json:"-" db:"updated_at"`
}
