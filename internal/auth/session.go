package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// sessionIDBytes is the entropy of a session id, hex encoded in the cookie
const sessionIDBytes = 32

// SessionManager logs users in and out of browser sessions. The cookie only
// carries the session id; everything else stays in the SessionStore.
type SessionManager struct {
	users services.UserService
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionManager(users services.UserService, store SessionStore, ttl time.Duration) *SessionManager {
	return &SessionManager{users: users, store: store, ttl: ttl, now: time.Now}
}

// TTL is the idle lifetime of a session
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Login authenticates the user and always starts a new session
func (m *SessionManager) Login(ctx context.Context, username, password string) (*models.Session, error) {
	user, err := m.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &models.Session{
		ID:         id,
		UserID:     user.ID,
		ExpiresAt:  now.Add(m.ttl),
		LastSeenAt: now,
		CreatedAt:  now,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Logout removes the session. Unknown ids are ignored.
func (m *SessionManager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve returns the user of a live session and extends its lifetime
func (m *SessionManager) Resolve(ctx context.Context, id string) (uint, error) {
	if id == "" {
		return 0, ErrSessionNotFound
	}

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	now := m.now()
	if !now.Before(session.ExpiresAt) {
		if err := m.store.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("delete expired session: %w", err)
		}
		return 0, ErrSessionExpired
	}

	if err := m.store.Touch(ctx, id, now, now.Add(m.ttl)); err != nil {
		return 0, fmt.Errorf("touch session: %w", err)
	}
	return session.UserID, nil
}

// CleanupExpired deletes every expired session
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return n, nil
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
