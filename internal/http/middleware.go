package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"devconnector/internal/auth"
)

// TokenHeader carries the raw signed token on authenticated requests.
const TokenHeader = "x-auth-token"

// identityKey is the gin context key holding the auth.Identity of the caller.
const identityKey = "identity"

// requireAuth rejects requests without a valid token and binds the decoded
// identity to the request context.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(TokenHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token, authorization denied"})
			return
		}

		id, err := h.tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is not valid"})
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// currentUserID is only meaningful behind requireAuth.
func currentUserID(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id.ID
		}
	}
	id, _ := auth.IdentityFrom(c.Request.Context())
	return id.ID
}

// RateLimitConfig bounds request rate per client IP.
type RateLimitConfig struct {
	RPS       float64
	Burst     int
	CacheSize int
	TTL       time.Duration
}

func rateLimitPerIP(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	visitors := expirable.NewLRU[string, *rate.Limiter](cfg.CacheSize, nil, cfg.TTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter, ok := visitors.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
			visitors.Add(ip, limiter)
		}

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", TokenHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if id, ok := auth.IdentityFrom(c.Request.Context()); ok {
			fields["user_id"] = id.ID
		}

		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}
