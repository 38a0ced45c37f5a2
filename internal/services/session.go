package services

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"
)

// Session tracks one user's activity and serializes their turns.
type Session struct {
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
	Turns      int       `json:"turns"`

	turnMu   sync.Mutex
	inFlight int
}

// SessionManager manages user sessions
type SessionManager struct {
	sessions   map[string]*Session // In-memory session storage
	mu         sync.RWMutex
	sessionTTL time.Duration
	now        func() time.Time
}

// NewSessionManager creates a new session manager. A zero ttl reads
// SESSION_IDLE_TTL and falls back to 30 minutes.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		if d, err := time.ParseDuration(os.Getenv("SESSION_IDLE_TTL")); err == nil && d > 0 {
			ttl = d
		} else {
			ttl = 30 * time.Minute
		}
	}
	return &SessionManager{
		sessions:   make(map[string]*Session),
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// Acquire blocks until the caller holds userID's turn lock. The returned
// func releases it and must be called exactly once.
func (sm *SessionManager) Acquire(userID string) func() {
	sm.mu.Lock()
	session, exists := sm.sessions[userID]
	if !exists {
		now := sm.now()
		session = &Session{
			UserID:    userID,
			CreatedAt: now,
		}
		sm.sessions[userID] = session
		log.Printf("Session created for %s", userID)
	}
	session.inFlight++
	sm.mu.Unlock()

	session.turnMu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sm.mu.Lock()
			now := sm.now()
			session.LastActive = now
			session.ExpiresAt = now.Add(sm.sessionTTL)
			session.Turns++
			session.inFlight--
			sm.mu.Unlock()
			session.turnMu.Unlock()
		})
	}
}

// GetSession retrieves an active session
func (sm *SessionManager) GetSession(userID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[userID]
	if !exists {
		return nil, fmt.Errorf("session not found")
	}
	if !session.ExpiresAt.IsZero() && sm.now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("session expired")
	}
	return sm.snapshot(session), nil
}

// GetActiveSessions returns copies of all non-expired sessions, most recent first.
func (sm *SessionManager) GetActiveSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := sm.now()
	active := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		if session.inFlight > 0 || session.ExpiresAt.IsZero() || now.Before(session.ExpiresAt) {
			active = append(active, sm.snapshot(session))
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActive.After(active[j].LastActive)
	})
	return active
}

// CleanupExpired drops idle sessions that have no turn in progress.
func (sm *SessionManager) CleanupExpired() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	removed := 0
	for userID, session := range sm.sessions {
		if session.inFlight == 0 && !session.ExpiresAt.IsZero() && now.After(session.ExpiresAt) {
			delete(sm.sessions, userID)
			removed++
		}
	}
	return removed
}

// snapshot copies the exported fields. Caller holds sm.mu.
func (sm *SessionManager) snapshot(s *Session) *Session {
	return &Session{
		UserID:     s.UserID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive,
		ExpiresAt:  s.ExpiresAt,
		Turns:      s.Turns,
	}
}
