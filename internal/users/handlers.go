package users

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/BrayanSValencia/smartmart/internal/auth"
	"github.com/BrayanSValencia/smartmart/internal/cache"
	"github.com/BrayanSValencia/smartmart/internal/mail"
	"github.com/BrayanSValencia/smartmart/internal/validation"
)

const bcryptCost = 10

// HandlerConfig groups dependencies for the user handlers.
type HandlerConfig struct {
	Store    *Store
	Tokens   *auth.TokenService
	Roles    *auth.RoleTable
	Cache    cache.TTLStore
	Mailer   mail.Sender
	Validate *validatorv10.Validate
	BaseURL  string
}

// RegisterUserRoutes registers registration and user-management routes.
func RegisterUserRoutes(r gin.IRouter, cfg HandlerConfig) {
	authed := auth.RequireAuth(cfg.Tokens)
	asUser := auth.RequireRole(cfg.Roles, auth.RoleUser)
	asAdmin := auth.RequireRole(cfg.Roles, auth.RoleAdmin)

	r.POST("/register", registerHandler(cfg))
	r.POST("/register-staff", authed, asAdmin, registerStaffHandler(cfg))
	r.GET("/verify", verifyHandler(cfg))

	r.GET("", authed, asAdmin, listHandler(cfg))
	r.GET("/me", authed, asUser, meHandler(cfg))
	r.PUT("/me", authed, asUser, updateHandler(cfg))
	r.PATCH("/me", authed, asUser, patchHandler(cfg))
	r.PATCH("/me/deactivate", authed, asUser, deactivateHandler(cfg))

	// ids live under a static segment so they cannot shadow the
	// registration and profile routes
	r.GET("/id/:id", authed, asAdmin, getHandler(cfg))
	r.DELETE("/id/:id", authed, asAdmin, deleteHandler(cfg))
}

func verifyKey(jti string) string { return "verify:" + jti }

// registerHandler starts the email-verification flow: nothing is
// persisted until the link is visited.
func registerHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.RegisterRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		if conflict := checkUniqueness(c, cfg, req.Email, req.Username); conflict {
			return
		}

		token, jti, err := cfg.Tokens.IssueEmailToken(auth.PendingRegistration{
			Username:     req.Username,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			DateOfBirth:  req.DateOfBirth,
			Email:        req.Email,
			PasswordHash: string(hash),
		})
		if err != nil {
			log.Printf("register: sign email token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error sending email"})
			return
		}

		if err := cfg.Cache.Set(ctx, verifyKey(jti), []byte("1"), cfg.Tokens.EmailTokenTTL()); err != nil {
			log.Printf("register: cache token id: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error sending email"})
			return
		}

		link := cfg.BaseURL + "/api/users/verify?token=" + url.QueryEscape(token)
		if err := cfg.Mailer.SendVerification(req.Email, link); err != nil {
			log.Printf("register: send mail: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error sending email"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Verification email sent."})
	}
}

// verifyHandler redeems a one-time verification token and creates the
// account. The cached jti is the reuse guard.
func verifyHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
			return
		}

		reg, jti, err := cfg.Tokens.VerifyEmailToken(token)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token."})
			return
		}

		_, ok, err := cfg.Cache.Take(ctx, verifyKey(jti))
		if err != nil {
			log.Printf("verify: cache take: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Token already used or expired."})
			return
		}

		if conflict := checkUniqueness(c, cfg, reg.Email, reg.Username); conflict {
			return
		}

		dob, err := time.Parse(dateLayout, reg.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token."})
			return
		}

		roleID, err := cfg.Roles.ID(ctx, auth.RoleUser)
		if err != nil {
			log.Printf("verify: resolve role: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		u := &User{
			Username:    reg.Username,
			FirstName:   reg.FirstName,
			LastName:    reg.LastName,
			Phone:       reg.Phone,
			DateOfBirth: dob,
			RoleID:      roleID,
		}
		if err := cfg.Store.CreateWithLogin(ctx, u, reg.Email, reg.PasswordHash); err != nil {
			if errors.Is(err, ErrDuplicate) {
				c.JSON(http.StatusConflict, gin.H{"error": "Cannot complete verification. Email or username already registered."})
				return
			}
			log.Printf("verify: create account: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account after verification"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Account verified and created."})
	}
}

// registerStaffHandler creates a staff account immediately, no email
// verification.
func registerStaffHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.RegisterRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		if conflict := checkUniqueness(c, cfg, req.Email, req.Username); conflict {
			return
		}

		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date of birth"})
			return
		}

		roleID, err := cfg.Roles.ID(ctx, auth.RoleStaff)
		if err != nil {
			log.Printf("register staff: resolve role: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		u := &User{
			Username:    req.Username,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Phone:       req.Phone,
			DateOfBirth: dob,
			RoleID:      roleID,
		}
		if err := cfg.Store.CreateWithLogin(ctx, u, req.Email, string(hash)); err != nil {
			if errors.Is(err, ErrDuplicate) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email or username already in use."})
				return
			}
			log.Printf("register staff: create account: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create staff account"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Staff account created successfully."})
	}
}

func listHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		us, err := cfg.Store.ListUsers(c.Request.Context())
		if err != nil {
			log.Printf("list users: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		out := make([]Profile, 0, len(us))
		for i := range us {
			out = append(out, ProfileOf(&us[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

func meHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		u, err := cfg.Store.UserByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			log.Printf("get current user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.JSON(http.StatusOK, ProfileOf(u))
	}
}

func getHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		u, err := cfg.Store.UserByID(c.Request.Context(), id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			log.Printf("get user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.JSON(http.StatusOK, ProfileOf(u))
	}
}

func updateHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.UserUpdateRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date of birth"})
			return
		}
		patch := ProfilePatch{
			Username:    &req.Username,
			FirstName:   &req.FirstName,
			LastName:    &req.LastName,
			Phone:       &req.Phone,
			DateOfBirth: &dob,
		}
		applyPatch(c, cfg, patch)
	}
}

func patchHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.UserPatchRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		patch := ProfilePatch{
			Username:  req.Username,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		}
		if req.DateOfBirth != nil {
			dob, err := time.Parse(dateLayout, *req.DateOfBirth)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date of birth"})
				return
			}
			patch.DateOfBirth = &dob
		}
		applyPatch(c, cfg, patch)
	}
}

func applyPatch(c *gin.Context, cfg HandlerConfig, patch ProfilePatch) {
	claims := auth.ClaimsFrom(c)
	u, err := cfg.Store.UpdateProfile(c.Request.Context(), claims.UserID, patch)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if errors.Is(err, ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already in use."})
		return
	}
	if err != nil {
		log.Printf("update user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, ProfileOf(u))
}

func deactivateHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		err := cfg.Store.DeactivateUser(c.Request.Context(), claims.UserID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			log.Printf("deactivate user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Account deactivated successfully."})
	}
}

func deleteHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		err = cfg.Store.DeleteUser(c.Request.Context(), id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			log.Printf("delete user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// checkUniqueness writes the conflict response and reports whether one
// occurred.
func checkUniqueness(c *gin.Context, cfg HandlerConfig, email, username string) bool {
	ctx := c.Request.Context()

	inUse, err := cfg.Store.EmailInUse(ctx, email)
	if err != nil {
		log.Printf("check email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return true
	}
	if inUse {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use."})
		return true
	}

	inUse, err = cfg.Store.UsernameInUse(ctx, username)
	if err != nil {
		log.Printf("check username: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return true
	}
	if inUse {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already in use."})
		return true
	}
	return false
}
