package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-IP counter. It guards the anonymous
// session endpoint, where there is no token yet to identify the caller.
type RateLimiter struct {
	mu      sync.Mutex
	counts  map[string]*windowCount
	limit   int
	window  time.Duration
	stopped chan struct{}
}

type windowCount struct {
	n       int
	started time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		counts:  make(map[string]*windowCount),
		limit:   limit,
		window:  window,
		stopped: make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// sweep drops windows that have already expired so the map stays bounded.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopped:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, wc := range rl.counts {
				if time.Since(wc.started) > rl.window {
					delete(rl.counts, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Stop() {
	close(rl.stopped)
}

// allow records one request from ip and reports whether it fits the window.
func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc, ok := rl.counts[ip]
	if !ok || time.Since(wc.started) > rl.window {
		rl.counts[ip] = &windowCount{n: 1, started: time.Now()}
		return true
	}

	wc.n++
	return wc.n <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		// RemoteAddr carries a port unless the RealIP middleware already
		// replaced it with the client address.
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
