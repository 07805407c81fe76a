package middleware

import (
	"credit-engine/internal/config"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	clientIdleEviction = 3 * time.Minute
	evictionInterval   = time.Minute
	maxTrackedClients  = 8192
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware applies a per-client token bucket keyed by source IP.
// The client map is bounded: idle buckets are evicted periodically, and when
// a new client would push past the cap the stalest bucket is dropped first.
type RateLimiterMiddleware struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	cfg     config.RateLimitConfig
	logger  *slog.Logger
	stop    chan struct{}
	once    sync.Once
}

func NewRateLimiterMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiterMiddleware {
	rl := &RateLimiterMiddleware{
		clients: make(map[string]*clientBucket),
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	if cfg.Enabled {
		go rl.evictLoop()
	}
	return rl
}

// Stop terminates the background eviction goroutine. Safe to call more than
// once.
func (rl *RateLimiterMiddleware) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiterMiddleware) evictLoop() {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiterMiddleware) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > clientIdleEviction {
			delete(rl.clients, ip)
		}
	}
}

// evictStalestLocked drops the bucket with the oldest lastSeen. Callers hold
// the mutex.
func (rl *RateLimiterMiddleware) evictStalestLocked() {
	var stalestIP string
	var stalest time.Time
	for ip, c := range rl.clients {
		if stalestIP == "" || c.lastSeen.Before(stalest) {
			stalestIP, stalest = ip, c.lastSeen
		}
	}
	if stalestIP != "" {
		delete(rl.clients, stalestIP)
	}
}

func (rl *RateLimiterMiddleware) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			rl.evictStalestLocked()
		}
		c = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip, time.Now()) {
			rl.logger.Warn("Rate limit exceeded", "ip", ip)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
