package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/server/handlers"
	"github.com/mamadbah2/farebook/internal/service/auth"
)

const requestIDHeader = "X-Request-ID"

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// Handlers groups the HTTP adapters. Notify is optional.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Entries *handlers.EntryHandler
	Reports *handlers.ReportHandler
	Actions *handlers.ActionHandler
	Notify  *handlers.NotifyHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, tokens TokenParser, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(authMiddleware(tokens, logger))
	{
		secured.GET("/auth/me", h.Auth.Me)

		secured.GET("/entries", h.Entries.List)
		secured.POST("/entries", h.Entries.Create)
		secured.POST("/entries/status", h.Entries.BulkStatus)
		secured.GET("/entries/:id", h.Entries.Get)
		secured.PUT("/entries/:id", h.Entries.Update)
		secured.DELETE("/entries/:id", h.Entries.Delete)
		secured.GET("/entries/:id/transitions", h.Entries.Transitions)
		secured.POST("/entries/:id/status", h.Entries.UpdateStatus)

		secured.GET("/summary", h.Reports.Summary)
		secured.GET("/summary/daily", h.Reports.Daily)
		secured.GET("/export.xlsx", h.Reports.Export)

		secured.POST("/exec", h.Actions.Exec)
	}

	admin := secured.Group("")
	admin.Use(requireRole(logger, models.RoleAdmin))
	{
		admin.POST("/users", h.Auth.CreateUser)
		if h.Notify != nil {
			admin.POST("/notify", h.Notify.SendMessage)
		}
	}

	logger.Info("router initialized")
	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(handlers.RequestIDKey)),
		}
		if user, ok := handlers.CurrentUser(c); ok {
			fields = append(fields, zap.String("user", user.Username))
		}
		logger.Info("request completed", fields...)
	}
}

func authMiddleware(tokens TokenParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header must be 'Bearer <token>'"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Debug("rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		handlers.SetUser(c, claims.User())
		c.Next()
	}
}

func requireRole(logger *zap.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := handlers.CurrentUser(c)
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		logger.Warn("role check failed", zap.String("user", user.Username), zap.String("role", string(user.Role)))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": handlers.ErrAdminOnly.Error()})
	}
}
