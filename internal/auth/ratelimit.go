package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client IP with a token bucket,
// independently of the per-account lockout in Service.
type LoginLimiter struct {
	mu      sync.Mutex
	every   time.Duration
	burst   int
	clients map[string]*loginClient
	now     func() time.Time
}

type loginClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows burst attempts per IP, refilled at one attempt
// every interval.
func NewLoginLimiter(every time.Duration, burst int) *LoginLimiter {
	if every <= 0 {
		every = 12 * time.Second
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginLimiter{
		every:   every,
		burst:   burst,
		clients: make(map[string]*loginClient),
		now:     time.Now,
	}
}

// Allow reports whether ip may attempt a login now and consumes a token.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	client, ok := l.clients[ip]
	if !ok {
		client = &loginClient{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// Reset forgets ip, typically after a successful login.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, ip)
}

// Prune drops clients not seen for longer than idle and returns how many
// were removed.
func (l *LoginLimiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for ip, client := range l.clients {
		if client.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}
