package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/adnfaris/tripdana/internal/auth"
	"github.com/adnfaris/tripdana/internal/metrics"
	"github.com/adnfaris/tripdana/internal/models"
	"github.com/adnfaris/tripdana/internal/service"
	"github.com/adnfaris/tripdana/internal/storage"
)

const ctxUserKey = "user"

// ipRateLimiter hands out one token bucket per client IP.
type ipRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*rate.Limiter
	r   rate.Limit
	b   int
}

func newIPRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	return &ipRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *ipRateLimiter) get(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.ips[ip]
	if !ok {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

func (s *Server) securityMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := newIPRateLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(429, gin.H{"error": "too many requests"})
			return
		}

		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")

		c.Next()
	}
}

// authMiddleware validates the bearer token and loads the user into the
// request context. Handlers read it back with currentUser.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			// WebSocket clients cannot set headers; accept ?token= there.
			header = "Bearer " + c.Query("token")
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		claims, err := s.jwt.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		user, err := s.store.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// currentUser returns the authenticated user set by authMiddleware.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUserKey).(*models.User)
}

// requestMeta extracts the audit attribution from the request.
func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(
			c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// respondError maps a service error to an HTTP status. Unknown errors are
// logged and reported as a generic 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		c.JSON(401, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrNotActiveMember),
		errors.Is(err, service.ErrNotAdmin),
		errors.Is(err, service.ErrNotRequester),
		errors.Is(err, service.ErrInvalidSignature):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, service.ErrJoinCodeNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, service.ErrVotingClosed),
		errors.Is(err, service.ErrAlreadyVoted),
		errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrWithdrawalNotOpen),
		errors.Is(err, service.ErrWithdrawalNotReady),
		errors.Is(err, service.ErrTerminalPayment),
		errors.Is(err, service.ErrInsufficientBalance):
		c.JSON(422, gin.H{"error": err.Error()})
	default:
		slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(500, gin.H{"error": "internal server error"})
	}
}
