// Package auth implements design/041_CDU_Gateway_Identity_Store.md §4.J's check_request/create_session
// semantics: dual Basic/X-Auth-Token request authentication backed by the
// accounts and sessions tables, and the Redfish RequireAuth middleware.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/dexatek/cdu-gateway/internal/ctxkeys"
	"github.com/dexatek/cdu-gateway/internal/database"
	"github.com/dexatek/cdu-gateway/pkg/auth"
	"github.com/dexatek/cdu-gateway/pkg/models"
)

// tokenAlphabet is the character set design/041_CDU_Gateway_Identity_Store.md §4.J's token format
// ([A-Za-z0-9]{63}) draws from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// tokenLength is the fixed session token length design/041_CDU_Gateway_Identity_Store.md §4.J names.
const tokenLength = 63

// Authenticator implements check_request/create_session against the
// accounts and sessions tables.
type Authenticator struct {
	db *database.DB
}

// New creates an Authenticator backed by db.
func New(db *database.DB) *Authenticator {
	return &Authenticator{db: db}
}

// AuthenticateRequest implements check_request: an X-Auth-Token that names
// a live session wins outright; any other case (no token, an invalid
// token, or no Authorization header) falls through to HTTP Basic.
func (a *Authenticator) AuthenticateRequest(r *http.Request) (*models.Account, error) {
	if token := r.Header.Get("X-Auth-Token"); token != "" {
		if account, err := a.AuthenticateToken(r.Context(), token); err == nil {
			return account, nil
		}
	}

	if username, password, ok := r.BasicAuth(); ok {
		return a.AuthenticateBasic(r.Context(), username, password)
	}

	return nil, fmt.Errorf("no authentication provided")
}

// AuthenticateToken validates a bearer token against the sessions table and
// returns the account it names.
func (a *Authenticator) AuthenticateToken(ctx context.Context, token string) (*models.Account, error) {
	session, err := a.db.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("invalid session token")
	}

	account, err := a.db.GetAccountByUsername(ctx, session.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account not found")
	}
	if !account.Enabled || account.Locked {
		return nil, fmt.Errorf("account is disabled")
	}

	return account, nil
}

// AuthenticateBasic validates HTTP Basic credentials against the accounts
// table: the account must exist, be enabled, not be locked, and the
// password must verify.
func (a *Authenticator) AuthenticateBasic(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := a.db.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if !account.Enabled || account.Locked {
		return nil, fmt.Errorf("account is disabled")
	}
	if err := auth.VerifyPassword(password, account.PasswordHash); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	return account, nil
}

// CreateSession implements create_session: purge expired sessions, pick the
// smallest unused id, mint a CSPRNG token, and persist a session carrying
// the account's username/role denormalized at creation time.
func (a *Authenticator) CreateSession(ctx context.Context, account *models.Account) (*models.Session, error) {
	if err := a.db.CleanupExpiredSessions(ctx); err != nil {
		return nil, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}

	id, err := a.db.NextSessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate session id: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session := &models.Session{
		ID:        id,
		Token:     token,
		Username:  account.Username,
		Role:      account.Role,
		ExpiresAt: time.Now().Add(models.SessionTTL),
	}

	if err := a.db.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// DeleteSessionByID removes a session (logout / DELETE Sessions/{id}).
func (a *Authenticator) DeleteSessionByID(ctx context.Context, id int) error {
	return a.db.DeleteSessionByID(ctx, id)
}

// RequireAuth is middleware enforcing check_request on every request:
// on failure it writes the Redfish Base.1.15.0.InsufficientPrivilege-style
// 401 envelope with WWW-Authenticate set, matching design/041_CDU_Gateway_Identity_Store.md §4.J's auth gate.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := a.AuthenticateRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("OData-Version", "4.0")
			w.Header().Set("WWW-Authenticate", `Basic realm="Redfish"`)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"Base.1.15.0.Unauthorized","message":"Authentication required","@Message.ExtendedInfo":[{"@odata.type":"#Message.v1_1_2.Message","MessageId":"Base.1.15.0.Unauthorized","Message":"Authentication required","Severity":"Critical","Resolution":"Provide valid credentials and resubmit the request."}]}}`))
			return
		}

		ctx := context.WithValue(r.Context(), ctxkeys.User, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccountFromContext extracts the authenticated account RequireAuth
// stored in the request context.
func GetAccountFromContext(ctx context.Context) (*models.Account, bool) {
	account, ok := ctx.Value(ctxkeys.User).(*models.Account)
	return account, ok
}

// generateToken produces a 63-character alphanumeric CSPRNG token
// (design/041_CDU_Gateway_Identity_Store.md §4.J: "generate a 63-char alphanumeric token from a CSPRNG").
func generateToken() (string, error) {
	raw := make([]byte, tokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, tokenLength)
	for i, b := range raw {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}
