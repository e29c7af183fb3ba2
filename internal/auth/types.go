package auth

import (
	"context"
	"errors"
	"time"
)

// Role names guarding route groups.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// ErrNotFound is returned by store implementations when a credential,
// account, role or refresh token does not exist.
var ErrNotFound = errors.New("not found")

// Credential is a login row joined to its user id.
type Credential struct {
	LoginID      int64
	UserID       int64
	Email        string
	PasswordHash string
}

// Account is the subset of a user record that token issuance needs.
type Account struct {
	ID       int64
	Username string
	Email    string
	RoleID   int64
}

// RefreshToken is a persisted refresh token row.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	JTI       string
	Revoked   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PendingRegistration is the registration data carried inside a one-time
// email-verification token. The password is already hashed.
type PendingRegistration struct {
	Username     string
	FirstName    string
	LastName     string
	Phone        string
	DateOfBirth  string
	Email        string
	PasswordHash string
}

// CredentialStore is the credential access the auth handlers need.
type CredentialStore interface {
	CredentialByEmail(ctx context.Context, email string) (*Credential, error)
	ActiveAccountByID(ctx context.Context, id int64) (*Account, error)
	SaveRefreshToken(ctx context.Context, rt *RefreshToken) error
	RecordLogin(ctx context.Context, userID int64, at time.Time) error
	UnrevokedRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id int64) error
}

// RoleStore loads the role name -> id mapping.
type RoleStore interface {
	RoleIDsByName(ctx context.Context) (map[string]int64, error)
}
