package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dexatek/cdu-gateway/pkg/auth"
	"github.com/dexatek/cdu-gateway/pkg/crypto"
	"github.com/dexatek/cdu-gateway/pkg/models"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection backing the account, session, and
// certificate stores (component J), plus the security policy and system
// UUID singleton rows.
type DB struct {
	conn      *sql.DB
	encryptor *crypto.Encryptor
}

// New creates a database connection without certificate-key encryption.
func New(dbPath string) (*DB, error) {
	return NewWithEncryption(dbPath, "")
}

// NewWithEncryption creates a database connection. When encryptionKey is
// non-empty, certificate private keys are encrypted at rest; otherwise they
// are stored as plaintext PEM.
func NewWithEncryption(dbPath string, encryptionKey string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var encryptor *crypto.Encryptor
	if encryptionKey != "" {
		encryptor, err = crypto.NewEncryptor(encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
		}
		slog.Info("certificate key encryption enabled")
	} else {
		slog.Warn("certificate key encryption disabled - private keys will be stored in plaintext")
	}

	return &DB{
		conn:      conn,
		encryptor: encryptor,
	}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DisableForeignKeys disables foreign key enforcement; used by tests that
// exercise error paths without a full row graph.
func (db *DB) DisableForeignKeys() error {
	_, err := db.conn.Exec("PRAGMA foreign_keys=OFF")
	return err
}

// Migrate creates the schema (if absent) and seeds the default administrator
// account design/041_CDU_Gateway_Identity_Store.md §4.J requires on first start.
func (db *DB) Migrate(ctx context.Context) error {
	slog.Info("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			locked BOOLEAN NOT NULL DEFAULT false,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			token TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			role TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
		`CREATE TABLE IF NOT EXISTS certificates (
			kind TEXT PRIMARY KEY,
			cert_pem TEXT NOT NULL,
			key_pem TEXT NOT NULL DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS security_policy (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			verify_certificate BOOLEAN NOT NULL DEFAULT false,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS system_uuid (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			uuid TEXT NOT NULL
		)`,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, migration := range migrations {
		if _, err := tx.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return db.seedDefaults(ctx)
}

// seedDefaults creates the default administrator account, an unset security
// policy row, and a fresh system UUID, but only the first time each is
// missing: re-running Migrate against an existing database must not reset
// an operator's changes.
func (db *DB) seedDefaults(ctx context.Context) error {
	count, err := db.CountAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count accounts: %w", err)
	}
	if count == 0 {
		hash, err := auth.HashPassword(models.DefaultAdminPassword)
		if err != nil {
			return fmt.Errorf("failed to hash default admin password: %w", err)
		}
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO accounts (id, username, password_hash, role, enabled, locked) VALUES (?, ?, ?, ?, true, false)`,
			models.DefaultAdminID, models.DefaultAdminUsername, hash, models.RoleAdministrator)
		if err != nil {
			return fmt.Errorf("failed to seed default admin account: %w", err)
		}
		slog.Info("seeded default administrator account", "username", models.DefaultAdminUsername)
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO security_policy (id, verify_certificate) VALUES (1, false)`); err != nil {
		return fmt.Errorf("failed to seed security policy: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO system_uuid (id, uuid) VALUES (1, ?)`, uuid.NewString()); err != nil {
		return fmt.Errorf("failed to seed system uuid: %w", err)
	}

	return nil
}

// Account operations

// GetAccounts returns all accounts ordered by id.
func (db *DB) GetAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, password_hash, role, enabled, locked, created_at, updated_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Enabled, &a.Locked, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount returns a single account by id.
func (db *DB) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	var a models.Account
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, enabled, locked, created_at, updated_at FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Enabled, &a.Locked, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// GetAccountByUsername returns a single account by username.
func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, enabled, locked, created_at, updated_at FROM accounts WHERE username = ?`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Enabled, &a.Locked, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return &a, nil
}

// CreateAccount inserts a new account. Callers must already have hashed the
// password into a.PasswordHash.
func (db *DB) CreateAccount(ctx context.Context, a *models.Account) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, role, enabled, locked) VALUES (?, ?, ?, ?, ?)`,
		a.Username, a.PasswordHash, a.Role, a.Enabled, a.Locked)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	return nil
}

// UpdateAccount updates the mutable fields of an existing account.
func (db *DB) UpdateAccount(ctx context.Context, a *models.Account) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET username = ?, password_hash = ?, role = ?, enabled = ?, locked = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		a.Username, a.PasswordHash, a.Role, a.Enabled, a.Locked, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// DeleteAccount deletes an account by id. The caller is responsible for
// refusing to delete models.DefaultAdminID (design/047_CDU_Gateway_Error_Handling.md §7); the store layer
// does not special-case it.
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// CountAccounts returns the number of accounts in the database.
func (db *DB) CountAccounts(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Session operations

// CreateSession inserts a new session row. Callers choose session.ID
// themselves (design/041_CDU_Gateway_Identity_Store.md §4.J's smallest-unused-id allocation; see
// NextSessionID).
func (db *DB) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, token, username, role, expires_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Token, session.Username, session.Role, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.CreatedAt = time.Now()
	return nil
}

// GetSessionByToken returns an unexpired session by bearer token.
func (db *DB) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, token, username, role, expires_at, created_at FROM sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now(),
	).Scan(&s.ID, &s.Token, &s.Username, &s.Role, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return &s, nil
}

// GetSession returns an unexpired session by id.
func (db *DB) GetSession(ctx context.Context, id int) (*models.Session, error) {
	var s models.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, token, username, role, expires_at, created_at FROM sessions WHERE id = ? AND expires_at > ?`,
		id, time.Now(),
	).Scan(&s.ID, &s.Token, &s.Username, &s.Role, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// GetSessions returns all unexpired sessions ordered by id, used both for
// the SessionCollection listing and for NextSessionID's gap search.
func (db *DB) GetSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, token, username, role, expires_at, created_at FROM sessions WHERE expires_at > ? ORDER BY id`,
		time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Token, &s.Username, &s.Role, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NextSessionID returns the smallest positive integer not currently in use
// by an unexpired session, per design/041_CDU_Gateway_Identity_Store.md §4.J.
func (db *DB) NextSessionID(ctx context.Context) (int, error) {
	sessions, err := db.GetSessions(ctx)
	if err != nil {
		return 0, err
	}
	used := make(map[int]bool, len(sessions))
	for _, s := range sessions {
		used[s.ID] = true
	}
	for id := 1; ; id++ {
		if !used[id] {
			return id, nil
		}
	}
}

// DeleteSessionByID deletes a session by id.
func (db *DB) DeleteSessionByID(ctx context.Context, id int) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session by id: %w", err)
	}
	return nil
}

// DeleteSessionByToken deletes a session by bearer token.
func (db *DB) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session by token: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired session rows; called at the top of
// create_session per design/041_CDU_Gateway_Identity_Store.md §4.J.
func (db *DB) CleanupExpiredSessions(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return nil
}

// Certificate operations

// GetCertificate returns the certificate row of the given kind.
func (db *DB) GetCertificate(ctx context.Context, kind models.CertificateKind) (*models.Certificate, error) {
	var c models.Certificate
	c.Kind = kind
	var keyPEM string
	err := db.conn.QueryRowContext(ctx,
		`SELECT cert_pem, key_pem, updated_at FROM certificates WHERE kind = ?`, kind,
	).Scan(&c.CertPEM, &keyPEM, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	if db.encryptor != nil && keyPEM != "" && crypto.IsEncrypted(keyPEM) {
		decrypted, err := db.encryptor.Decrypt(keyPEM)
		if err != nil {
			slog.Error("failed to decrypt certificate key", "kind", kind, "error", err)
		} else {
			keyPEM = decrypted
		}
	}
	c.KeyPEM = keyPEM
	return &c, nil
}

// UpsertCertificate stores or replaces the certificate row of the given
// kind, encrypting the private key at rest when an encryptor is configured.
func (db *DB) UpsertCertificate(ctx context.Context, c *models.Certificate) error {
	keyPEM := c.KeyPEM
	if db.encryptor != nil && keyPEM != "" {
		encrypted, err := db.encryptor.Encrypt(keyPEM)
		if err != nil {
			return fmt.Errorf("failed to encrypt certificate key: %w", err)
		}
		keyPEM = encrypted
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO certificates (kind, cert_pem, key_pem, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(kind) DO UPDATE SET cert_pem = excluded.cert_pem, key_pem = excluded.key_pem, updated_at = CURRENT_TIMESTAMP`,
		c.Kind, c.CertPEM, keyPEM)
	if err != nil {
		return fmt.Errorf("failed to upsert certificate: %w", err)
	}
	return nil
}

// Security policy operations

// GetSecurityPolicy returns the single security policy row, seeding it with
// VerifyCertificate=false if Migrate has not yet run in this process.
func (db *DB) GetSecurityPolicy(ctx context.Context) (*models.SecurityPolicy, error) {
	var p models.SecurityPolicy
	err := db.conn.QueryRowContext(ctx,
		`SELECT verify_certificate, updated_at FROM security_policy WHERE id = 1`,
	).Scan(&p.VerifyCertificate, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.SecurityPolicy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security policy: %w", err)
	}
	return &p, nil
}

// SetSecurityPolicy updates the single security policy row.
func (db *DB) SetSecurityPolicy(ctx context.Context, p *models.SecurityPolicy) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO security_policy (id, verify_certificate, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET verify_certificate = excluded.verify_certificate, updated_at = CURRENT_TIMESTAMP`,
		p.VerifyCertificate)
	if err != nil {
		return fmt.Errorf("failed to set security policy: %w", err)
	}
	return nil
}

// GetSystemUUID returns the gateway's stable Redfish Manager UUID, creating
// one if this is the first call against a fresh database.
func (db *DB) GetSystemUUID(ctx context.Context) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, `SELECT uuid FROM system_uuid WHERE id = 1`).Scan(&id)
	if err == sql.ErrNoRows {
		id = uuid.NewString()
		if _, err := db.conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO system_uuid (id, uuid) VALUES (1, ?)`, id); err != nil {
			return "", fmt.Errorf("failed to seed system uuid: %w", err)
		}
		return id, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get system uuid: %w", err)
	}
	return id, nil
}
