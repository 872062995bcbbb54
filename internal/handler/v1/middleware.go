package v1

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/service"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const claimsKey = "claims"

// AuthMiddleware validates the bearer token and stores the claims on the
// request context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles aborts with 403 unless the authenticated user holds one of
// the listed roles.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
	}
}

func claimsFrom(c *gin.Context) *domain.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*domain.Claims)
	return claims
}

// callerFrom assembles the service-layer caller identity from the request.
func callerFrom(c *gin.Context) *service.Caller {
	claims := claimsFrom(c)
	if claims == nil {
		return nil
	}
	return &service.Caller{
		UserID:     claims.UserID,
		Role:       string(claims.Role),
		ProviderID: claims.ProviderID,
		PatientID:  claims.PatientID,
		IP:         clientIP(c),
		RequestID:  c.GetString(requestIDKey),
	}
}

const requestIDKey = "request_id"

// RequestIDMiddleware propagates an X-Request-ID, generating one when the
// client did not send it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// rateLimiterStore holds a per-IP token bucket. Entries idle past the TTL
// are evicted on the next sweep.
type rateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterStore(ctx context.Context, rps float64, burst int) *rateLimiterStore {
	s := &rateLimiterStore{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go s.sweep(ctx)
	return s
}

func (s *rateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (s *rateLimiterStore) sweep(ctx context.Context) {
	const idleTTL = 10 * time.Minute
	ticker := time.NewTicker(idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for ip, entry := range s.limiters {
				if time.Since(entry.lastSeen) > idleTTL {
					delete(s.limiters, ip)
				}
			}
			s.mu.Unlock()
		}
	}
}

// RateLimitMiddleware limits requests per client IP. The context stops the
// store's eviction sweep on server shutdown.
func RateLimitMiddleware(ctx context.Context, cfg config.RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(ctx, cfg.RequestsPerSecond, cfg.BurstSize)
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !store.getLimiter(ip).Allow() {
			log.Warn("rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}

// AuthRateLimitMiddleware applies the stricter per-minute budget used on
// credential endpoints.
func AuthRateLimitMiddleware(ctx context.Context, cfg config.RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	rps := float64(cfg.AuthRequestsPerMinute) / 60
	store := newRateLimiterStore(ctx, rps, cfg.AuthRequestsPerMinute)
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !store.getLimiter(ip).Allow() {
			log.Warn("auth rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many attempts, try again later"})
			return
		}
		c.Next()
	}
}

// MetricsMiddleware records request counts, latency, and in-flight gauge.
func MetricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		collector.InFlightGauge.Inc()

		c.Next()

		collector.InFlightGauge.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		collector.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		collector.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// clientIP resolves the originating address, honoring proxy headers.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 && ips[0] != "" {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
