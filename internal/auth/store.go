package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trashytalk/piwardrive-go/internal/store"
)

// UserStore persists operator accounts in the shared SQLite store.
type UserStore struct {
	db *store.Store
}

// NewUserStore wraps an open store for user account access.
func NewUserStore(db *store.Store) *UserStore {
	return &UserStore{db: db}
}

// ByUsername fetches an account by its unique username.
func (u *UserStore) ByUsername(ctx context.Context, username string) (User, error) {
	var usr User
	var createdAt string
	var lastLogin sql.NullString
	var disabled int
	err := u.db.GetReader().QueryRowContext(ctx, `
		SELECT id, username, password_hash, COALESCE(token_hash, ''), role, created_at, last_login, disabled
		FROM users WHERE username = ?`, username,
	).Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &usr.TokenHash, &usr.Role, &createdAt, &lastLogin, &disabled)
	if err != nil {
		return User{}, fmt.Errorf("lookup user %q: %w", username, err)
	}
	usr.Disabled = disabled != 0
	usr.CreatedAt = parseTimestamp(createdAt)
	if lastLogin.Valid {
		usr.LastLogin = parseTimestamp(lastLogin.String)
	}
	return usr, nil
}

// ByTokenHash fetches an account by the SHA-256 hash of its bearer token.
func (u *UserStore) ByTokenHash(ctx context.Context, tokenHash string) (User, error) {
	var usr User
	var createdAt string
	var lastLogin sql.NullString
	var disabled int
	err := u.db.GetReader().QueryRowContext(ctx, `
		SELECT id, username, password_hash, token_hash, role, created_at, last_login, disabled
		FROM users WHERE token_hash = ?`, tokenHash,
	).Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &usr.TokenHash, &usr.Role, &createdAt, &lastLogin, &disabled)
	if err != nil {
		return User{}, fmt.Errorf("lookup token: %w", err)
	}
	usr.Disabled = disabled != 0
	usr.CreatedAt = parseTimestamp(createdAt)
	if lastLogin.Valid {
		usr.LastLogin = parseTimestamp(lastLogin.String)
	}
	return usr, nil
}

// List returns every account, ordered by username.
func (u *UserStore) List(ctx context.Context) ([]User, error) {
	rows, err := u.db.GetReader().QueryContext(ctx, `
		SELECT id, username, role, created_at, last_login, disabled
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var usr User
		var createdAt string
		var lastLogin sql.NullString
		var disabled int
		if err := rows.Scan(&usr.ID, &usr.Username, &usr.Role, &createdAt, &lastLogin, &disabled); err != nil {
			return nil, err
		}
		usr.Disabled = disabled != 0
		usr.CreatedAt = parseTimestamp(createdAt)
		if lastLogin.Valid {
			usr.LastLogin = parseTimestamp(lastLogin.String)
		}
		out = append(out, usr)
	}
	return out, rows.Err()
}

// parseTimestamp parses a stored RFC3339Nano timestamp, falling back to the
// zero value on malformed input rather than failing the whole row.
func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// Create inserts a new account. The caller must hash the password first.
func (u *UserStore) Create(ctx context.Context, usr User) error {
	_, err := u.db.GetWriter().ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at, disabled)
		VALUES (?, ?, ?, ?, ?, 0)`,
		usr.ID, usr.Username, usr.PasswordHash, usr.Role, usr.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create user %q: %w", usr.Username, err)
	}
	return nil
}

// SetToken stores the SHA-256 hash of a freshly issued bearer token and
// stamps last_login, replacing any previously issued token for this user.
func (u *UserStore) SetToken(ctx context.Context, userID, tokenHash string) error {
	_, err := u.db.GetWriter().ExecContext(ctx, `
		UPDATE users SET token_hash = ?, last_login = ? WHERE id = ?`,
		tokenHash, time.Now().UTC().Format(time.RFC3339Nano), userID)
	if err != nil {
		return fmt.Errorf("set token for user %q: %w", userID, err)
	}
	return nil
}

// ClearToken revokes a user's current bearer token (logout).
func (u *UserStore) ClearToken(ctx context.Context, userID string) error {
	_, err := u.db.GetWriter().ExecContext(ctx, `UPDATE users SET token_hash = NULL WHERE id = ?`, userID)
	return err
}
