package auth

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/BrayanSValencia/smartmart/internal/validation"
)

const invalidCredentials = "Invalid email, password, or account is inactive"

// HandlerConfig groups dependencies for the auth handlers.
type HandlerConfig struct {
	Store    CredentialStore
	Tokens   *TokenService
	Roles    *RoleTable
	Validate *validatorv10.Validate
}

// RegisterAuthRoutes registers login/logout under the given group.
func RegisterAuthRoutes(r gin.IRouter, cfg HandlerConfig) {
	r.POST("/login", loginHandler(cfg))
	r.POST("/logout", RequireAuth(cfg.Tokens), RequireRole(cfg.Roles, RoleUser), logoutHandler(cfg))
}

func loginHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.LoginRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		cred, err := cfg.Store.CredentialByEmail(ctx, req.Email)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentials})
			return
		}
		if err != nil {
			log.Printf("login: credential lookup: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentials})
			return
		}

		acct, err := cfg.Store.ActiveAccountByID(ctx, cred.UserID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentials})
			return
		}
		if err != nil {
			log.Printf("login: account lookup: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		access, err := cfg.Tokens.IssueAccessToken(acct)
		if err != nil {
			log.Printf("login: sign access token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		refresh, err := cfg.Tokens.IssueRefreshToken(acct.ID)
		if err != nil {
			log.Printf("login: sign refresh token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if err := cfg.Store.SaveRefreshToken(ctx, refresh); err != nil {
			log.Printf("login: save refresh token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		if err := cfg.Store.RecordLogin(ctx, acct.ID, time.Now().UTC()); err != nil {
			log.Printf("login: record last login: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  access,
			"refresh_token": refresh.Token,
		})
	}
}

func logoutHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.LogoutRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		rt, err := cfg.Store.UnrevokedRefreshToken(ctx, req.RefreshToken)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or already revoked token"})
			return
		}
		if err != nil {
			log.Printf("logout: token lookup: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		if err := cfg.Store.RevokeRefreshToken(ctx, rt.ID); err != nil {
			log.Printf("logout: revoke token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
	}
}
