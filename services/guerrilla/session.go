package guerrilla

import (
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/customeros/txwatch/config"
)

// Session is the cookie identity bound to one mailbox user. It is created once at
// startup, refreshed by every SetEmailUser call and lives as long as the process.
type Session struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.RWMutex
	address string
}

func NewSession(cfg *config.ProviderConfig) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Session{
		httpClient: &http.Client{Jar: jar, Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}, nil
}

// Address is the mailbox address of the last successful SetEmailUser
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

func (s *Session) setAddress(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = address
}
