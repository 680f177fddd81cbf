package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/tours-service/internal/domain"
	"github.com/tazhibayda/tours-service/internal/log"
	"github.com/tazhibayda/tours-service/internal/metrics"
	"github.com/tazhibayda/tours-service/internal/security"
)

const (
	authUserKey  = "authUser"
	requestIDKey = "X-Request-ID"
	bearerPrefix = "Bearer "
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDKey, id)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).
			Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method,
			strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Protect admits only requests carrying a valid bearer token for a user that
// still exists and whose password has not changed since the token was
// issued. The resolved user goes into the gin context for the chain.
func (h *Handler) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if !strings.HasPrefix(authz, bearerPrefix) {
			metrics.AuthFailures.WithLabelValues("no_token").Inc()
			respondError(c, unauthorized("you are not logged in, please log in to get access"))
			return
		}
		claims, err := security.ParseAccess(h.JWTSecret, strings.TrimPrefix(authz, bearerPrefix))
		if err != nil {
			metrics.AuthFailures.WithLabelValues("bad_token").Inc()
			respondError(c, unauthorized("invalid or expired token"))
			return
		}
		uid, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("bad_token").Inc()
			respondError(c, unauthorized("invalid or expired token"))
			return
		}
		u, err := h.Users.FindUserByID(c.Request.Context(), uid, false)
		if err != nil {
			respondError(c, internal("could not load user"))
			return
		}
		if u == nil {
			metrics.AuthFailures.WithLabelValues("user_gone").Inc()
			respondError(c, unauthorized("the user belonging to this token no longer exists"))
			return
		}
		if claims.IssuedAt != nil && u.ChangedPasswordAfter(claims.IssuedAt.Time) {
			metrics.AuthFailures.WithLabelValues("stale_token").Inc()
			respondError(c, unauthorized("password was changed recently, please log in again"))
			return
		}
		c.Set(authUserKey, u)
		c.Next()
	}
}

// RestrictTo gates a route to the given roles. It assumes Protect already
// ran; an absent identity is treated as a server-side wiring mistake.
func (h *Handler) RestrictTo(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			respondError(c, internal("role check without authenticated user"))
			return
		}
		if !allowed[u.Role] {
			metrics.AuthFailures.WithLabelValues("forbidden_role").Inc()
			respondError(c, forbidden("you do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

// RateLimit throttles per client IP via Redis. With no Redis configured it
// is a passthrough; a Redis outage fails open rather than locking everyone
// out of login.
func (h *Handler) RateLimit(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Redis == nil || h.RateLimitPerMin <= 0 {
			c.Next()
			return
		}
		key := fmt.Sprintf("rl:%s:%s", name, c.ClientIP())
		n, err := h.Redis.Hit(c.Request.Context(), key, time.Minute)
		if err != nil {
			log.L.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if n > int64(h.RateLimitPerMin) {
			respondError(c, &apiError{Status: 429, Message: "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(authUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
