package credentials

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/types"
)

type persistence interface {
	SaveCredential(ctx context.Context, token string, userJSON []byte) error
	LoadCredential(ctx context.Context) (string, []byte, error)
	ClearCredential(ctx context.Context) error
}

// Store is the process-wide holder of the access credential and the signed-in
// user. The refresh credential is never held here; it lives in the HTTP cookie
// jar and the client only forwards it.
type Store struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      *types.User

	db   persistence
	logg *logger.Logger
}

// NewStore builds a credential store. db may be nil for a purely in-memory
// store (tests); logg may be nil.
func NewStore(db persistence, logg *logger.Logger) *Store {
	return &Store{db: db, logg: logg}
}

// Load hydrates the store from durable storage, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	token, userJSON, err := s.db.LoadCredential(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	var user *types.User
	if len(userJSON) > 0 {
		user = &types.User{}
		if err := json.Unmarshal(userJSON, user); err != nil {
			// A corrupt user blob should not block token restore.
			if s.logg != nil {
				s.logg.Warn(ctx, "discarding unreadable persisted user payload")
			}
			user = nil
		}
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiryFromClaims(token)
	s.user = user
	s.mu.Unlock()
	return nil
}

// SetToken replaces the access credential, deriving expiry from token claims.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.expiresAt = expiryFromClaims(token)
	user := s.user
	s.mu.Unlock()
	return s.persist(ctx, token, user)
}

// SetSession stores the credential and user together (login/registration).
func (s *Store) SetSession(ctx context.Context, token string, user *types.User) error {
	s.mu.Lock()
	s.token = token
	s.expiresAt = expiryFromClaims(token)
	s.user = user
	s.mu.Unlock()
	return s.persist(ctx, token, user)
}

// Token returns the held access token, or empty when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the credential expiry derived from token claims. Zero when
// no credential is held or the token carries no exp claim.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the held credential has passed its expiry.
func (s *Store) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && !s.expiresAt.IsZero() && now.After(s.expiresAt)
}

// User returns the signed-in user, or nil.
func (s *Store) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Clear drops the credential and user from memory and durable storage.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.user = nil
	s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.ClearCredential(ctx)
}

func (s *Store) persist(ctx context.Context, token string, user *types.User) error {
	if s.db == nil {
		return nil
	}
	var userJSON []byte
	if user != nil {
		encoded, err := json.Marshal(user)
		if err != nil {
			return err
		}
		userJSON = encoded
	}
	return s.db.SaveCredential(ctx, token, userJSON)
}

// expiryFromClaims reads the exp claim without verifying the signature; the
// client holds no signing secret and only needs the timestamp.
func expiryFromClaims(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
