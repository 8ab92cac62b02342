package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fdg312/plateplan/internal/config"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/metrics"
)

const visitorIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per client IP.
type visitors struct {
	mu        sync.Mutex
	byIP      map[string]*visitor
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newVisitors(rps, burst int) *visitors {
	return &visitors{
		byIP:  make(map[string]*visitor),
		rps:   rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

func (v *visitors) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) > visitorIdleTTL {
		v.sweep(now)
	}

	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	return vis.limiter.AllowN(now, 1)
}

// sweep drops visitors idle for longer than visitorIdleTTL.
func (v *visitors) sweep(now time.Time) {
	for ip, vis := range v.byIP {
		if now.Sub(vis.lastSeen) > visitorIdleTTL {
			delete(v.byIP, ip)
		}
	}
	v.lastSweep = now
}

// RateLimitMiddleware enforces per-IP rate limiting via token bucket.
// If RateLimitRPS <= 0, the middleware is a no-op pass-through.
// Health checks and metrics scrapes are never limited.
func RateLimitMiddleware(cfg *config.Config, logger *zap.Logger, m *metrics.Collector, next http.Handler) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		return next
	}

	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = cfg.RateLimitRPS
	}

	clients := newVisitors(cfg.RateLimitRPS, burst)
	logger = logging.OrNop(logger)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractIP(r)
		if clients.allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		logger.Warn("rate limited", zap.String("ip", ip), zap.String("path", r.URL.Path))
		m.RateLimited()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]map[string]string{
			"error": {"code": "rate_limited", "message": "Too many requests"},
		})
	})
}

// extractIP prefers the first X-Forwarded-For hop, as set by the proxy in front.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
