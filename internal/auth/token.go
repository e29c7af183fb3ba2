package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the decoded access-token claims attached to a request.
type Claims struct {
	UserID   int64
	Username string
	Email    string
	RoleID   int64
	JTI      string
}

// TokenService issues and verifies the three token kinds: short-lived
// access tokens, persisted refresh tokens, and one-time email-verification
// tokens. All are HS256 with separate secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	emailSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	emailTTL      time.Duration
	nowFunc       func() time.Time
}

// NewTokenService returns a TokenService with the given secrets and TTLs.
func NewTokenService(accessSecret, refreshSecret, emailSecret string, accessTTL, refreshTTL, emailTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		emailSecret:   []byte(emailSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		emailTTL:      emailTTL,
		nowFunc:       time.Now,
	}
}

// IssueAccessToken signs an access token for the account.
func (s *TokenService) IssueAccessToken(acct *Account) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub":      acct.ID,
		"username": acct.Username,
		"email":    acct.Email,
		"role":     acct.RoleID,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.accessSecret)
}

// VerifyAccessToken parses and verifies an access token.
func (s *TokenService) VerifyAccessToken(raw string) (*Claims, error) {
	m, err := s.parse(raw, s.accessSecret)
	if err != nil {
		return nil, err
	}
	return &Claims{
		UserID:   claimInt64(m, "sub"),
		Username: claimString(m, "username"),
		Email:    claimString(m, "email"),
		RoleID:   claimInt64(m, "role"),
		JTI:      claimString(m, "jti"),
	}, nil
}

// IssueRefreshToken signs a refresh token and returns the row to persist.
func (s *TokenService) IssueRefreshToken(userID int64) (*RefreshToken, error) {
	now := s.nowFunc()
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &RefreshToken{
		UserID:    userID,
		Token:     signed,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

// IssueEmailToken signs a one-time verification token embedding the
// pending registration. The returned jti is cached by the caller so the
// token can only be redeemed once.
func (s *TokenService) IssueEmailToken(reg PendingRegistration) (token, jti string, err error) {
	now := s.nowFunc()
	jti = uuid.NewString()
	claims := jwt.MapClaims{
		"username":      reg.Username,
		"first_name":    reg.FirstName,
		"last_name":     reg.LastName,
		"phone":         reg.Phone,
		"date_of_birth": reg.DateOfBirth,
		"email":         reg.Email,
		"password":      reg.PasswordHash,
		"jti":           jti,
		"iat":           now.Unix(),
		"exp":           now.Add(s.emailTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(s.emailSecret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// VerifyEmailToken parses a verification token back into the pending
// registration and its jti.
func (s *TokenService) VerifyEmailToken(raw string) (*PendingRegistration, string, error) {
	m, err := s.parse(raw, s.emailSecret)
	if err != nil {
		return nil, "", err
	}
	reg := &PendingRegistration{
		Username:     claimString(m, "username"),
		FirstName:    claimString(m, "first_name"),
		LastName:     claimString(m, "last_name"),
		Phone:        claimString(m, "phone"),
		DateOfBirth:  claimString(m, "date_of_birth"),
		Email:        claimString(m, "email"),
		PasswordHash: claimString(m, "password"),
	}
	return reg, claimString(m, "jti"), nil
}

// EmailTokenTTL is how long a verification token (and its cached jti) lives.
func (s *TokenService) EmailTokenTTL() time.Duration {
	return s.emailTTL
}

func (s *TokenService) parse(raw string, secret []byte) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.nowFunc))
	if err != nil {
		return nil, err
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return m, nil
}

func claimString(m jwt.MapClaims, key string) string {
	v, _ := m[key].(string)
	return v
}

func claimInt64(m jwt.MapClaims, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
