package checkout

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/BrayanSValencia/smartmart/internal/auth"
	"github.com/BrayanSValencia/smartmart/internal/validation"
)

// HandlerConfig groups dependencies for the checkout handlers.
type HandlerConfig struct {
	Service          *Service
	Tokens           *auth.TokenService
	Roles            *auth.RoleTable
	Validate         *validatorv10.Validate
	ResponsePagePath string
}

// RegisterCheckoutRoutes mounts the checkout flow under /checkout.
// The confirmation endpoint is unauthenticated: ePayco calls it
// server-to-server and the signature check is the gate.
func RegisterCheckoutRoutes(api gin.IRouter, cfg HandlerConfig) {
	chk := api.Group("/checkout")
	chk.POST("", auth.RequireAuth(cfg.Tokens), auth.RequireRole(cfg.Roles, auth.RoleUser), checkoutHandler(cfg))
	chk.POST("/confirmation", confirmationHandler(cfg))
	chk.GET("/epayco/response", responsePageHandler(cfg))
}

func checkoutHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}

		claims := auth.ClaimsFrom(c)
		init, err := cfg.Service.Checkout(c.Request.Context(), claims.Username, req.Items)
		if err != nil {
			var notFound *ProductNotFoundError
			var outOfStock *OutOfStockError
			switch {
			case errors.As(err, &notFound), errors.As(err, &outOfStock):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Printf("checkout: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			}
			return
		}
		c.JSON(http.StatusOK, init)
	}
}

func confirmationHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cb Confirmation
		if err := c.ShouldBind(&cb); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required payment data"})
			return
		}
		if cb.RefPayco == "" || cb.TransactionID == "" || cb.Signature == "" || cb.Invoice == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required payment data"})
			return
		}

		result, err := cfg.Service.Confirm(c.Request.Context(), &cb)
		switch {
		case errors.Is(err, ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		case errors.Is(err, ErrUnknownInvoice):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired invoice"})
		case errors.Is(err, ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case err != nil:
			log.Printf("confirmation: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process order"})
		case !result.Accepted:
			c.JSON(http.StatusOK, gin.H{"message": "Payment not accepted"})
		default:
			c.JSON(http.StatusOK, gin.H{
				"message": "Payment processed successfully",
				"orderId": result.OrderID,
			})
		}
	}
}

func responsePageHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.File(cfg.ResponsePagePath)
	}
}
