package webserver

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/y0ug/malxplain/pkg/auth"
)

const (
	defaultMaxClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address. Buckets idle for
// longer than idleTTL are dropped, and at most maxClients are retained.
type clientLimiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	trustProxy bool
	maxClients int
	idleTTL    time.Duration
	lastSweep  time.Time
	now        func() time.Time
	clients    map[string]*clientEntry
}

func newClientLimiter(limit rate.Limit, burst int, trustProxy bool) *clientLimiter {
	return &clientLimiter{
		limit:      limit,
		burst:      burst,
		trustProxy: trustProxy,
		maxClients: defaultMaxClients,
		idleTTL:    clientIdleTTL,
		now:        time.Now,
		clients:    make(map[string]*clientEntry),
	}
}

// key identifies the caller. X-Forwarded-For is only honored behind a trusted proxy.
func (c *clientLimiter) key(r *http.Request) string {
	if c.trustProxy {
		return auth.ClientIP(r)
	}
	return auth.RemoteIP(r)
}

func (c *clientLimiter) get(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.clients[client]; ok {
		e.lastSeen = now
		return e.limiter
	}

	if now.Sub(c.lastSweep) >= c.idleTTL || len(c.clients) >= c.maxClients {
		c.sweep(now)
	}
	if len(c.clients) >= c.maxClients {
		c.evictOldest()
	}

	e := &clientEntry{limiter: rate.NewLimiter(c.limit, c.burst), lastSeen: now}
	c.clients[client] = e
	return e.limiter
}

func (c *clientLimiter) sweep(now time.Time) {
	for k, e := range c.clients {
		if now.Sub(e.lastSeen) >= c.idleTTL {
			delete(c.clients, k)
		}
	}
	c.lastSweep = now
}

func (c *clientLimiter) evictOldest() {
	var (
		oldest     string
		oldestSeen time.Time
		found      bool
	)
	for k, e := range c.clients {
		if !found || e.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen, found = k, e.lastSeen, true
		}
	}
	if found {
		delete(c.clients, oldest)
	}
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Middleware rejects requests over the client's budget with 429.
func (c *clientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.get(c.key(r)).Allow() {
			auth.WriteErrorResponse(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
