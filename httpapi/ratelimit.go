package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// sweepInterval bounds how often idle-client cleanup runs.
const sweepInterval = 10 * time.Minute

// rateLimiter enforces per-client request quotas over sliding minute, hour,
// and day windows. Clients are keyed by IP, honoring the usual proxy headers.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	lastSweep time.Time

	perMinute int
	perHour   int
	perDay    int

	now func() time.Time
}

type clientWindow struct {
	requests []time.Time
}

func newRateLimiter(limits Limits) *rateLimiter {
	return &rateLimiter{
		clients:   make(map[string]*clientWindow),
		perMinute: limits.RatePerMinute,
		perHour:   limits.RatePerHour,
		perDay:    limits.RatePerDay,
		now:       time.Now,
	}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed, remaining, retryAfter := rl.allow(ip)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.perMinute))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow records a request for ip and reports whether it is within quota,
// plus the remaining minute-window allowance and how long to wait if not.
func (rl *rateLimiter) allow(ip string) (allowed bool, remaining int, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweepLocked(now)
		rl.lastSweep = now
	}

	cw := rl.clients[ip]
	if cw == nil {
		cw = &clientWindow{}
		rl.clients[ip] = cw
	}

	dayAgo := now.Add(-24 * time.Hour)
	kept := cw.requests[:0]
	for _, t := range cw.requests {
		if t.After(dayAgo) {
			kept = append(kept, t)
		}
	}
	cw.requests = kept

	var lastMinute, lastHour int
	minuteAgo := now.Add(-time.Minute)
	hourAgo := now.Add(-time.Hour)
	for _, t := range cw.requests {
		if t.After(minuteAgo) {
			lastMinute++
		}
		if t.After(hourAgo) {
			lastHour++
		}
	}

	switch {
	case lastMinute >= rl.perMinute:
		oldest := oldestAfter(cw.requests, minuteAgo)
		return false, 0, oldest.Add(time.Minute).Sub(now)
	case lastHour >= rl.perHour:
		oldest := oldestAfter(cw.requests, hourAgo)
		return false, 0, oldest.Add(time.Hour).Sub(now)
	case len(cw.requests) >= rl.perDay:
		oldest := oldestAfter(cw.requests, dayAgo)
		return false, 0, oldest.Add(24 * time.Hour).Sub(now)
	}

	cw.requests = append(cw.requests, now)
	return true, rl.perMinute - lastMinute - 1, 0
}

func oldestAfter(requests []time.Time, cutoff time.Time) time.Time {
	for _, t := range requests {
		if t.After(cutoff) {
			return t
		}
	}
	return cutoff
}

// sweepLocked drops clients with no requests in the last day so the map does
// not grow without bound. Caller holds rl.mu.
func (rl *rateLimiter) sweepLocked(now time.Time) {
	dayAgo := now.Add(-24 * time.Hour)
	for ip, cw := range rl.clients {
		if len(cw.requests) == 0 || !cw.requests[len(cw.requests)-1].After(dayAgo) {
			delete(rl.clients, ip)
		}
	}
}

// clientIP resolves the requester's address, preferring proxy headers so
// deployments behind a reverse proxy limit real clients rather than the
// proxy itself.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i != -1 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
