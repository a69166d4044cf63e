package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bookmarket/internal/apperr"
	"bookmarket/internal/config"
	"bookmarket/internal/middleware"
	"bookmarket/internal/queue"
	"bookmarket/internal/repository"
	"bookmarket/internal/security"
	"bookmarket/internal/service"
	"bookmarket/internal/storage"
)

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	issuer   *security.SessionIssuer
	auth     *service.AuthService
	listings *service.ListingService
	uploads  *service.UploadService
	cache    *redis.Client
	checks   []healthCheck
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	store *storage.ObjectStore,
	issuer *security.SessionIssuer,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	events := queue.NewPublisher(cache, cfg.Redis.Stream)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		issuer:   issuer,
		auth:     service.NewAuthService(userRepo, issuer, cfg.Security.LoginFailureDelay, log),
		listings: service.NewListingService(listingRepo, userRepo, events, store, log),
		uploads: service.NewUploadService(store, service.UploadOptions{
			MaxBytes:     cfg.Upload.MaxBytes,
			MaxBatchSize: cfg.Upload.MaxBatchSize,
			Secret:       cfg.Security.UploadSecret,
		}, log),
		cache: cache,
		checks: []healthCheck{
			{name: "database", check: db.Ping},
			{name: "cache", check: func(ctx context.Context) error { return cache.Ping(ctx).Err() }},
			{name: "storage", check: store.Ping},
		},
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Session(h.issuer))

	limiter := middleware.RateLimit(h.cache, "auth", h.cfg.Security.AuthRateLimit, h.cfg.Security.AuthRateWindow, h.log)
	session := middleware.RequireSession()

	auth := v1.Group("/auth")
	{
		auth.POST("/register", limiter, h.SignUp)
		auth.POST("/login", limiter, h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", session, h.Me)
		auth.POST("/update-profile", session, h.UpdateProfile)
	}

	listings := v1.Group("/listings")
	{
		listings.GET("", h.ListListings)
		listings.GET("/mine", session, h.ListMyListings)
		listings.POST("", session, h.CreateListing)
		listings.GET("/:id", h.GetListing)
		listings.PUT("/:id", session, h.UpdateListing)
		listings.DELETE("/:id", session, h.DeleteListing)
		listings.POST("/:id/images/order", session, h.ReorderImages)
		listings.POST("/:id/approve", middleware.RequireAdmin(), h.ApproveListing)
		listings.POST("/:id/deny", middleware.RequireAdmin(), h.DenyListing)
	}

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.GET("/listings", h.ModerationQueue)

	media := v1.Group("/media", session)
	{
		media.POST("/upload", h.UploadImage)
		media.POST("/batch", h.UploadImages)
		media.POST("/delete", h.DeleteImage)
	}
}

// respondError writes the error body. Internal and upstream causes are logged
// here and never returned.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	status, body := apperr.HTTP(err)
	if status >= 500 {
		h.log.Error().
			Err(err).
			Str("route", c.FullPath()).
			Str("request_id", middleware.RequestIDFrom(c)).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

// decodeJSON decodes exactly one JSON object, rejecting unknown fields.
func decodeJSON(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return apperr.Validation("invalid request body: trailing data")
	}
	return nil
}
