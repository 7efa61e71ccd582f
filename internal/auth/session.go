package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"portfel/internal/cache"
	"portfel/internal/core"
	"portfel/internal/storage"
)

// ErrNoSession is returned for unknown or expired session tokens.
var ErrNoSession = errors.New("no session")

// Sessions stores login sessions in the database keyed by the SHA-256 of
// the cookie token, with a short-lived cache in front of lookups.
type Sessions struct {
	storage *storage.SQLiteRepository
	cache   cache.Cache[storage.Session]
	ttl     time.Duration
	now     func() time.Time
}

func NewSessions(storage *storage.SQLiteRepository, c cache.Cache[storage.Session], ttl time.Duration) *Sessions {
	return &Sessions{storage: storage, cache: c, ttl: ttl, now: time.Now}
}

// HashToken returns the stored form of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return b64.EncodeToString(b), nil
}

// Create starts a session and returns the token for the cookie.
func (s *Sessions) Create(ctx context.Context, userID, activeBudgetID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	sess := storage.Session{
		TokenHash:      HashToken(token),
		UserID:         userID,
		ActiveBudgetID: activeBudgetID,
		ExpiresAt:      s.now().Add(s.ttl).UTC(),
	}
	if err := s.storage.Queries().CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a cookie token to its live session.
func (s *Sessions) Lookup(ctx context.Context, token string) (storage.Session, error) {
	if token == "" {
		return storage.Session{}, ErrNoSession
	}
	hash := HashToken(token)

	sess, ok := s.cachedGet(hash)
	if !ok {
		var err error
		sess, err = s.storage.Queries().GetSession(ctx, hash)
		if errors.Is(err, core.ErrNotFound) {
			return storage.Session{}, ErrNoSession
		}
		if err != nil {
			return storage.Session{}, err
		}
	}

	if !s.now().Before(sess.ExpiresAt) {
		s.forget(hash)
		_ = s.storage.Queries().DeleteSession(ctx, hash)
		return storage.Session{}, ErrNoSession
	}
	s.cachedSet(hash, sess)
	return sess, nil
}

// SetActiveBudget records the sub-budget selected in a session.
func (s *Sessions) SetActiveBudget(ctx context.Context, token string, budgetID int64) error {
	hash := HashToken(token)
	s.forget(hash)
	return s.storage.Queries().SetSessionBudget(ctx, hash, budgetID)
}

// Destroy ends a session.
func (s *Sessions) Destroy(ctx context.Context, token string) error {
	hash := HashToken(token)
	s.forget(hash)
	return s.storage.Queries().DeleteSession(ctx, hash)
}

// DestroyUser ends every session of a user, used after a password reset.
func (s *Sessions) DestroyUser(ctx context.Context, userID int64) error {
	if s.cache != nil {
		s.cache.DeleteFunc(func(_ string, sess storage.Session) bool { return sess.UserID == userID })
	}
	return s.storage.Queries().DeleteUserSessions(ctx, userID)
}

// Purge deletes expired sessions from the database.
func (s *Sessions) Purge(ctx context.Context) (int64, error) {
	return s.storage.Queries().DeleteExpiredSessions(ctx, s.now())
}

func (s *Sessions) cachedGet(hash string) (storage.Session, bool) {
	if s.cache == nil {
		return storage.Session{}, false
	}
	return s.cache.Get(hash)
}

func (s *Sessions) cachedSet(hash string, sess storage.Session) {
	if s.cache != nil {
		s.cache.Set(hash, sess)
	}
}

func (s *Sessions) forget(hash string) {
	if s.cache != nil {
		s.cache.Delete(hash)
	}
}
