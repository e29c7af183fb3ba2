package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/BrayanSValencia/smartmart/internal/auth"
)

var (
	// ErrNotFound signals the user (or token row) does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate signals a unique-constraint violation on email or username.
	ErrDuplicate = errors.New("already registered")
)

const uniqueViolation = "23505"

// Store is the Postgres-backed store for users, logins, refresh tokens
// and roles.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, username, first_name, last_name, phone, date_of_birth, last_login, is_active, role_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Phone,
		&u.DateOfBirth, &lastLogin, &u.IsActive, &u.RoleID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// --- auth.CredentialStore ---

func (s *Store) CredentialByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	var cred auth.Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, password FROM login WHERE email = $1`, email).
		Scan(&cred.LoginID, &cred.UserID, &cred.Email, &cred.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query login by email: %w", err)
	}
	return &cred, nil
}

func (s *Store) ActiveAccountByID(ctx context.Context, id int64) (*auth.Account, error) {
	var acct auth.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, l.email, u.role_id
		 FROM users u JOIN login l ON l.user_id = u.id
		 WHERE u.id = $1 AND u.is_active = TRUE`, id).
		Scan(&acct.ID, &acct.Username, &acct.Email, &acct.RoleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active account: %w", err)
	}
	return &acct, nil
}

func (s *Store) SaveRefreshToken(ctx context.Context, rt *auth.RefreshToken) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, jti, revoked, issued_at, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id`,
		rt.UserID, rt.Token, rt.JTI, rt.Revoked, rt.IssuedAt, rt.ExpiresAt).
		Scan(&rt.ID)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) UnrevokedRefreshToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	var rt auth.RefreshToken
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, jti, revoked, issued_at, expires_at
		 FROM refresh_tokens WHERE token = $1 AND revoked = FALSE`, token).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.JTI, &rt.Revoked, &rt.IssuedAt, &rt.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// --- auth.RoleStore ---

func (s *Store) RoleIDsByName(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM roles`)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("role rows: %w", err)
	}
	return out, nil
}

// --- registration ---

func (s *Store) EmailInUse(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM login WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (s *Store) UsernameInUse(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// CreateWithLogin inserts the user and its login row in one transaction.
func (s *Store) CreateWithLogin(ctx context.Context, u *User, email, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (username, first_name, last_name, phone, date_of_birth, is_active, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW(), NOW()) RETURNING id`,
		u.Username, u.FirstName, u.LastName, u.Phone, u.DateOfBirth, u.RoleID).
		Scan(&u.ID)
	if err != nil {
		return mapUnique(fmt.Errorf("insert user: %w", err), err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO login (email, password, user_id) VALUES ($1, $2, $3)`,
		email, passwordHash, u.ID)
	if err != nil {
		return mapUnique(fmt.Errorf("insert login: %w", err), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- user management ---

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user rows: %w", err)
	}
	return out, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil patch fields in a single statement.
// With an empty patch the stored row is returned unchanged.
func (s *Store) UpdateProfile(ctx context.Context, id int64, p ProfilePatch) (*User, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Username != nil {
		add("username", *p.Username)
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.DateOfBirth != nil {
		add("date_of_birth", *p.DateOfBirth)
	}
	if len(sets) == 0 {
		return s.UserByID(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args))
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapUnique(fmt.Errorf("update user: %w", err), err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordLogin stamps last_login; failures are the caller's to ignore.
func (s *Store) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return err
}

// mapUnique converts a Postgres unique violation into ErrDuplicate,
// otherwise returns the wrapped error.
func mapUnique(wrapped, raw error) error {
	var pqErr *pq.Error
	if errors.As(raw, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return wrapped
}
