package main

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/BrayanSValencia/smartmart/internal/auth"
	"github.com/BrayanSValencia/smartmart/internal/cache"
	"github.com/BrayanSValencia/smartmart/internal/catalog"
	"github.com/BrayanSValencia/smartmart/internal/checkout"
	"github.com/BrayanSValencia/smartmart/internal/config"
	"github.com/BrayanSValencia/smartmart/internal/database"
	"github.com/BrayanSValencia/smartmart/internal/mail"
	"github.com/BrayanSValencia/smartmart/internal/users"
	"github.com/BrayanSValencia/smartmart/internal/validation"
)

type deps struct {
	cfg          config.Config
	userStore    *users.Store
	catalogStore *catalog.Store
	orderStore   *checkout.Store
	tokens       *auth.TokenService
	roles        *auth.RoleTable
	ttlStore     cache.TTLStore
	mailer       mail.Sender
}

func setupRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(recovery(d.cfg))
	r.Use(cors.New(cors.Config{
		AllowOrigins: d.cfg.CORSOrigins,
		AllowMethods: d.cfg.CORSMethods,
		AllowHeaders: d.cfg.CORSHeaders,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	validate := validation.New()
	api := r.Group("/api")

	auth.RegisterAuthRoutes(api.Group("/auth"), auth.HandlerConfig{
		Store:    d.userStore,
		Tokens:   d.tokens,
		Roles:    d.roles,
		Validate: validate,
	})

	users.RegisterUserRoutes(api.Group("/users"), users.HandlerConfig{
		Store:    d.userStore,
		Tokens:   d.tokens,
		Roles:    d.roles,
		Cache:    d.ttlStore,
		Mailer:   d.mailer,
		Validate: validate,
		BaseURL:  d.cfg.BaseURL,
	})

	catalog.RegisterCatalogRoutes(api, catalog.HandlerConfig{
		Store:    d.catalogStore,
		Tokens:   d.tokens,
		Roles:    d.roles,
		Validate: validate,
	})

	svc := checkout.NewService(d.catalogStore, d.orderStore, d.orderStore, d.ttlStore, checkout.Config{
		MerchantID:      d.cfg.MerchantID,
		MerchantKey:     d.cfg.MerchantKey,
		TaxRate:         d.cfg.TaxRate,
		Currency:        d.cfg.Currency,
		BaseURL:         d.cfg.BaseURL,
		PendingOrderTTL: d.cfg.PendingOrderTTL,
	})
	checkout.RegisterCheckoutRoutes(api, checkout.HandlerConfig{
		Service:          svc,
		Tokens:           d.tokens,
		Roles:            d.roles,
		Validate:         validate,
		ResponsePagePath: d.cfg.ResponsePagePath,
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "API endpoint not found"})
	})

	return r
}

// recovery turns panics into the global JSON error shape; the stack is
// exposed in development only.
func recovery(cfg config.Config) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		body := gin.H{"error": true, "message": "Internal server error"}
		if cfg.Development() {
			body["message"] = err
			body["stack"] = string(debug.Stack())
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.MigrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	userStore := users.NewStore(db)

	var ttlStore cache.TTLStore
	if cfg.RedisAddr != "" {
		ttlStore = cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		log.Printf("pending-order cache: redis at %s", cfg.RedisAddr)
	} else {
		ttlStore = cache.NewMemoryStore()
		log.Printf("pending-order cache: in-process")
	}

	d := deps{
		cfg:          cfg,
		userStore:    userStore,
		catalogStore: catalog.NewStore(db),
		orderStore:   checkout.NewStore(db),
		tokens: auth.NewTokenService(
			cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.EmailTokenSecret,
			cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.EmailTokenTTL),
		roles:    auth.NewRoleTable(userStore, cfg.RoleRefreshInterval),
		ttlStore: ttlStore,
		mailer:   mail.NewSMTPSender(cfg.SMTP),
	}

	r := setupRouter(d)
	log.Printf("listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
