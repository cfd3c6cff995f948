package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
	"github.com/ryu111/stock-health-bot-sub001/pkg/redis"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter throttles /api requests per client address
// The Redis sliding window is shared across replicas; without Redis, or when
// it fails, an in-process token bucket applies instead.
type RateLimiter struct {
	rps    float64
	burst  int
	shared *redis.RateLimiter
	logger *logger.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter; rps <= 0 disables limiting
func NewRateLimiter(rps float64, burst int, shared *redis.RateLimiter, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.Nop()
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rps,
		burst:   burst,
		shared:  shared,
		logger:  log,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.rps > 0 && !l.allow(r) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) allow(r *http.Request) bool {
	client := clientID(r)

	if l.shared != nil && l.shared.Enabled() {
		allowed, _, err := l.shared.Allow(r.Context(), redis.APIRateLimit(client, l.rps, l.burst))
		if err == nil {
			return allowed
		}
		l.logger.WithError(err).Warn("Shared rate limiter unavailable, using local limiter")
	}

	return l.local(client).Allow()
}

func (l *RateLimiter) local(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= maxTrackedClients {
		for id, c := range l.clients {
			if now.Sub(c.lastSeen) > clientIdleTTL {
				delete(l.clients, id)
			}
		}
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
