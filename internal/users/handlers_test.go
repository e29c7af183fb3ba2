package users

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrayanSValencia/smartmart/internal/auth"
	"github.com/BrayanSValencia/smartmart/internal/cache"
	"github.com/BrayanSValencia/smartmart/internal/validation"
)

type fakeMailer struct {
	to   string
	link string
	err  error
}

func (f *fakeMailer) SendVerification(to, link string) error {
	f.to = to
	f.link = link
	return f.err
}

const registerBody = `{
	"username": "ana",
	"first_name": "Ana",
	"last_name": "Diaz",
	"phone": "301-555-1234",
	"date_of_birth": "1990-04-02",
	"email": "ana@example.com",
	"password": "supersecret"
}`

func setupUserRouter(t *testing.T, store *Store, mailer *fakeMailer) (*gin.Engine, cache.TTLStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenService("access-secret", "refresh-secret", "email-secret",
		15*time.Minute, 7*24*time.Hour, 5*time.Minute)
	mem := cache.NewMemoryStore()

	r := gin.New()
	RegisterUserRoutes(r.Group("/api/users"), HandlerConfig{
		Store:    store,
		Tokens:   tokens,
		Roles:    auth.NewRoleTable(store, 5*time.Minute),
		Cache:    mem,
		Mailer:   mailer,
		Validate: validation.New(),
		BaseURL:  "http://localhost:8080",
	})
	return r, mem
}

func expectNotInUse(mock sqlmock.Sqlmock, email, username string) {
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM login`).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM users`).
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterSendsVerificationMail(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	r, _ := setupUserRouter(t, store, mailer)

	expectNotInUse(mock, "ana@example.com", "ana")

	w := postJSON(r, "/api/users/register", registerBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Verification email sent.")
	assert.Equal(t, "ana@example.com", mailer.to)
	assert.Contains(t, mailer.link, "http://localhost:8080/api/users/verify?token=")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	r, _ := setupUserRouter(t, store, mailer)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM login`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := postJSON(r, "/api/users/register", registerBody)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already in use.")
	assert.Empty(t, mailer.link)
}

func TestRegisterRejectsInvalidPhone(t *testing.T) {
	store, mock := newMockStore(t)
	r, _ := setupUserRouter(t, store, &fakeMailer{})

	body := strings.Replace(registerBody, "301-555-1234", "123-456-7890", 1)
	w := postJSON(r, "/api/users/register", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// verificationToken runs the register flow and pulls the token out of the
// emailed link.
func verificationToken(t *testing.T, mock sqlmock.Sqlmock, r *gin.Engine, mailer *fakeMailer) string {
	t.Helper()

	expectNotInUse(mock, "ana@example.com", "ana")
	w := postJSON(r, "/api/users/register", registerBody)
	require.Equal(t, http.StatusOK, w.Code)

	link, err := url.Parse(mailer.link)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestVerifyCreatesAccount(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	r, _ := setupUserRouter(t, store, mailer)

	token := verificationToken(t, mock, r, mailer)

	expectNotInUse(mock, "ana@example.com", "ana")
	mock.ExpectQuery(`SELECT id, name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "user").AddRow(int64(2), "staff").AddRow(int64(3), "admin"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("ana", "Ana", "Diaz", "301-555-1234", sqlmock.AnyArg(), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO login`).
		WithArgs("ana@example.com", sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/verify?token="+url.QueryEscape(token), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Account verified and created.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTokenIsSingleUse(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	r, _ := setupUserRouter(t, store, mailer)

	token := verificationToken(t, mock, r, mailer)

	expectNotInUse(mock, "ana@example.com", "ana")
	mock.ExpectQuery(`SELECT id, name FROM roles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "user"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO login`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	path := "/api/users/verify?token=" + url.QueryEscape(token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	// replaying the same link must not create another account
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Token already used or expired.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	store, mock := newMockStore(t)
	r, _ := setupUserRouter(t, store, &fakeMailer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/verify?token=garbage", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token.")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRequiresToken(t *testing.T) {
	store, mock := newMockStore(t)
	r, _ := setupUserRouter(t, store, &fakeMailer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/verify", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Token is required")
	assert.NoError(t, mock.ExpectationsWereMet())
}
