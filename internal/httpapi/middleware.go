package httpapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long a client may stay silent before its bucket is dropped
	limiterIdleTTL = 5 * time.Minute
	// limiterCleanupInterval is how often idle buckets are dropped
	limiterCleanupInterval = time.Minute
)

// clientLimiters hands out one token bucket per client address
type clientLimiters struct {
	limit    rate.Limit
	burst    int
	limiters sync.Map // client -> *clientLimiter
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// newClientLimiters returns nil when limit is not positive, which disables limiting
func newClientLimiters(perSecond float64, burst int) *clientLimiters {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &clientLimiters{limit: rate.Limit(perSecond), burst: burst, now: time.Now}
}

func (c *clientLimiters) get(client string) *rate.Limiter {
	v, ok := c.limiters.Load(client)
	if !ok {
		v, _ = c.limiters.LoadOrStore(client, &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)})
	}
	cl := v.(*clientLimiter)
	cl.lastSeen.Store(c.now().UnixNano())
	return cl.limiter
}

// prune drops the buckets of clients not seen for idle and returns how many were dropped
func (c *clientLimiters) prune(idle time.Duration) int {
	cutoff := c.now().Add(-idle).UnixNano()
	dropped := 0
	c.limiters.Range(func(key, v any) bool {
		if v.(*clientLimiter).lastSeen.Load() < cutoff {
			c.limiters.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

// size returns the number of tracked clients
func (c *clientLimiters) size() int {
	n := 0
	c.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// cleanup prunes idle buckets every interval until ctx ends
func (c *clientLimiters) cleanup(ctx context.Context, interval, idle time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.prune(idle); n > 0 {
				logger.Debug("dropped idle rate limiters", zap.Int("count", n), zap.Int("remaining", c.size()))
			}
		}
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiters == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiters.get(ip).Allow() {
			s.logger.Debug("rate limit exceeded", zap.String("client", ip))
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withConcurrencyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.sem.Acquire(r.Context(), 1); err != nil {
			s.respondError(w, http.StatusServiceUnavailable, "service at capacity")
			return
		}
		defer s.sem.Release(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
			zap.String("forwarded_for", r.Header.Get("X-Forwarded-For")),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// clientIP is the host of the connection address. Proxy headers are sent
// by the caller and are not trusted for rate limiting.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
