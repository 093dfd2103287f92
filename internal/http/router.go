// Package httpapi wires the HTTP transport (Gin) to the bot: the chat
// platform webhook, the ops API and the cross-cutting middleware (tracing,
// correlation IDs, redacted logging, panic recovery, metrics, CORS, security
// headers, idempotency and rate limiting).
//
// The webhook is mounted outside the ops API group: it is authenticated by
// the platform signature, never rate limited, and always acknowledged.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/pantry-bot/docs"
	"github.com/tbourn/pantry-bot/internal/config"
	"github.com/tbourn/pantry-bot/internal/http/handlers"
	"github.com/tbourn/pantry-bot/internal/http/middleware"
	"github.com/tbourn/pantry-bot/internal/messenger"
)

// Webhook paths per platform.
const (
	LINEWebhookPath     = "/callback"
	TelegramWebhookPath = "/telegram/webhook"
)

// maxBodyBytes caps every request body. LINE batches stay well below it.
const maxBodyBytes = 1 << 20

var corsMethods = []string{"GET", "POST", "OPTIONS"}

var corsHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.UserIDHeader, middleware.HeaderIdempotencyKey,
}

// WebhookPath returns where platform's webhook is mounted, or "" for none.
func WebhookPath(platform string) string {
	switch platform {
	case messenger.PlatformLINE:
		return LINEWebhookPath
	case messenger.PlatformTelegram:
		return TelegramWebhookPath
	default:
		return ""
	}
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// The ops API group adds gzip, the idempotency validator and then the rate
// limiter, so replays bypass the limiter.
func RegisterRoutes(r *gin.Engine, cfg config.Config, deps handlers.Deps) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps)

	if deps.Platform != nil {
		if path := WebhookPath(deps.Platform.Name()); path != "" {
			r.POST(path, h.Webhook)
		}
	}

	if cfg.APIEnabled {
		api := groupWithPrefix(r, cfg.APIBasePath)
		api.Use(gzip.Gzip(gzip.DefaultCompression))
		api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, replayLookup(deps.Events)))
		api.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler())
		{
			api.POST("/turns", h.PostTurn)
			api.GET("/ingredients", h.ListIngredients)
			api.GET("/ingredients/expiring", h.ListExpiring)
			api.POST("/reminders/run", h.RunReminders)
		}
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// replayLookup reports whether (user, key) already has a stored turn reply.
func replayLookup(events handlers.EventStore) middleware.IdempotencyLookup {
	if events == nil {
		return nil
	}
	return func(ctx context.Context, userID, key string) (bool, error) {
		reply, found, err := events.Lookup(ctx, handlers.SourceAPI, userID, key)
		if err != nil {
			return false, err
		}
		return found && reply != "", nil
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	if len(origins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				ExposeHeaders:    []string{"X-Request-ID", "ETag", "Idempotency-Replayed"},
				AllowCredentials: false,
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody caps the request body at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
