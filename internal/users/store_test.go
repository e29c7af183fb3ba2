package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrayanSValencia/smartmart/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func userRows(id int64, username string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "first_name", "last_name", "phone",
		"date_of_birth", "last_login", "is_active", "role_id", "created_at", "updated_at",
	}).AddRow(id, username, "Ana", "Diaz", "301-555-1234",
		time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC), nil, true, int64(1), now, now)
}

func TestCredentialByEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, user_id, email, password FROM login`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "password"}).
			AddRow(int64(7), int64(3), "ana@example.com", "$2a$10$hash"))

	cred, err := store.CredentialByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cred.UserID)
	assert.Equal(t, "$2a$10$hash", cred.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, user_id, email, password FROM login`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "password"}))

	_, err := store.CredentialByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCreateWithLoginCommitsBothInserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("ana", "Ana", "Diaz", "301-555-1234", sqlmock.AnyArg(), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO login`).
		WithArgs("ana@example.com", "$2a$10$hash", int64(42)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	u := &User{
		Username:    "ana",
		FirstName:   "Ana",
		LastName:    "Diaz",
		Phone:       "301-555-1234",
		DateOfBirth: time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
		RoleID:      1,
	}
	err := store.CreateWithLogin(context.Background(), u, "ana@example.com", "$2a$10$hash")
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithLoginDuplicateRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	u := &User{Username: "ana", RoleID: 1}
	err := store.CreateWithLogin(context.Background(), u, "ana@example.com", "hash")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithLoginDuplicateEmailRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO login`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	u := &User{Username: "ana", RoleID: 1}
	err := store.CreateWithLogin(context.Background(), u, "ana@example.com", "hash")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(int64(3)).
		WillReturnRows(userRows(3, "ana"))

	u, err := store.UserByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Nil(t, u.LastLogin)
}

func TestUserByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.UserByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfilePartialPatch(t *testing.T) {
	store, mock := newMockStore(t)

	phone := "302-555-9876"
	mock.ExpectQuery(`UPDATE users SET phone = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(phone, int64(3)).
		WillReturnRows(userRows(3, "ana"))

	u, err := store.UpdateProfile(context.Background(), 3, ProfilePatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileEmptyPatchReadsRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(int64(3)).
		WillReturnRows(userRows(3, "ana"))

	u, err := store.UpdateProfile(context.Background(), 3, ProfilePatch{})
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
}

func TestUpdateProfileDuplicateUsername(t *testing.T) {
	store, mock := newMockStore(t)

	name := "taken"
	mock.ExpectQuery(`UPDATE users SET username`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.UpdateProfile(context.Background(), 3, ProfilePatch{Username: &name})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRevokeRefreshTokenNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RevokeRefreshToken(context.Background(), 9)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestDeactivateUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET is_active = FALSE`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DeactivateUser(context.Background(), 3)
	assert.NoError(t, err)
}

func TestRoleIDsByName(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "user").AddRow(int64(2), "staff").AddRow(int64(3), "admin"))

	m, err := store.RoleIDsByName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"user": 1, "staff": 2, "admin": 3}, m)
}
