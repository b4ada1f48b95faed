package http

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mollysec/molly/pkg/safego"
)

// AuthSessions tracks logged-in API sessions by cookie token. It is
// separate from Molly's scan sessions: this is who may talk to the
// API, not what is being scanned.
type AuthSessions struct {
	mu       sync.Mutex
	sessions map[string]*authSession
	ttl      time.Duration
	logger   *zap.Logger
}

type authSession struct {
	userID  int
	created time.Time
	active  bool
}

// NewAuthSessions creates an empty session store. Tokens expire ttl
// after creation regardless of activity.
func NewAuthSessions(ttl time.Duration, logger *zap.Logger) *AuthSessions {
	return &AuthSessions{
		sessions: make(map[string]*authSession),
		ttl:      ttl,
		logger:   logger,
	}
}

// Create registers a new session and returns its token.
func (a *AuthSessions) Create(userID int) string {
	token := uuid.NewString()

	a.mu.Lock()
	a.sessions[token] = &authSession{
		userID:  userID,
		created: time.Now(),
		active:  true,
	}
	a.mu.Unlock()

	a.logger.Info("User session created", zap.Int("user_id", userID))
	return token
}

// Validate reports whether the token belongs to an active, unexpired
// session. Expired sessions are deactivated in place.
func (a *AuthSessions) Validate(token string) bool {
	if token == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[token]
	if !ok {
		return false
	}
	if time.Since(s.created) > a.ttl {
		s.active = false
		return false
	}
	return s.active
}

// UserID returns the user bound to a valid token, or 0.
func (a *AuthSessions) UserID(token string) int {
	if token == "" {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[token]
	if !ok || !s.active || time.Since(s.created) > a.ttl {
		return 0
	}
	return s.userID
}

// End deactivates the session. Unknown tokens are ignored.
func (a *AuthSessions) End(token string) {
	a.mu.Lock()
	if s, ok := a.sessions[token]; ok {
		s.active = false
	}
	a.mu.Unlock()
}

// CleanupExpired removes inactive and expired sessions from memory and
// returns how many were dropped.
func (a *AuthSessions) CleanupExpired() int {
	now := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for token, s := range a.sessions {
		if !s.active || now.Sub(s.created) > a.ttl {
			delete(a.sessions, token)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps expired sessions every interval until done is
// closed.
func (a *AuthSessions) StartCleanup(interval time.Duration, done <-chan struct{}) {
	safego.Go(a.logger, "auth-session-cleanup", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if removed := a.CleanupExpired(); removed > 0 {
					a.logger.Debug("Expired sessions removed", zap.Int("count", removed))
				}
			}
		}
	})
}
