package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/domain"
	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

const defaultSessionTTL = 30 * time.Minute

// SessionService owns the in-memory session store. Sessions expire after a
// fixed TTL and are lazily evicted on access plus periodically by Cleanup.
type SessionService interface {
	Create() *domain.Session
	Get(id uuid.UUID) (*domain.Session, error)
	// Update applies a mutation under the store lock and returns the
	// updated snapshot.
	Update(id uuid.UUID, apply func(s *domain.Session) error) (*domain.Session, error)
	Delete(id uuid.UUID) bool
	CleanupExpired() int
	Count() int
	// ExpireHook registers a callback fired with each evicted session.
	ExpireHook(fn func(s *domain.Session))
}

type sessionService struct {
	log *logger.Logger
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.Session
	onExpire func(s *domain.Session)
}

func NewSessionService(log *logger.Logger, ttl time.Duration) SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionService{
		log:      log.With("service", "SessionService"),
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*domain.Session),
	}
}

func (s *sessionService) ExpireHook(fn func(sess *domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

func (s *sessionService) Create() *domain.Session {
	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info("Session created", "session_id", sess.ID, "expires_at", sess.ExpiresAt)
	return sess.Clone()
}

func (s *sessionService) Get(id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && time.Now().After(sess.ExpiresAt) {
		delete(s.sessions, id)
		expired := sess
		hook := s.onExpire
		s.mu.Unlock()
		s.log.Info("Session expired", "session_id", id)
		if hook != nil {
			hook(expired)
		}
		return nil, fmt.Errorf("session %s: %w", id, pkgerrors.ErrNotFound)
	}
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, pkgerrors.ErrNotFound)
	}
	out := sess.Clone()
	s.mu.Unlock()
	return out, nil
}

func (s *sessionService) Update(id uuid.UUID, apply func(sess *domain.Session) error) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || time.Now().After(sess.ExpiresAt) {
		if ok {
			delete(s.sessions, id)
		}
		return nil, fmt.Errorf("session %s: %w", id, pkgerrors.ErrNotFound)
	}

	// Mutate a deep copy so a failed apply leaves the stored session intact
	// and in-place slice edits by the applier never touch handed-out
	// snapshots.
	next := sess.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	s.sessions[id] = next

	return next.Clone(), nil
}

func (s *sessionService) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	hook := s.onExpire
	s.mu.Unlock()

	if ok {
		s.log.Info("Session deleted", "session_id", id)
		if hook != nil {
			hook(sess)
		}
	}
	return ok
}

func (s *sessionService) CleanupExpired() int {
	now := time.Now()

	s.mu.Lock()
	var evicted []*domain.Session
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			evicted = append(evicted, sess)
			delete(s.sessions, id)
		}
	}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		for _, sess := range evicted {
			hook(sess)
		}
	}
	if len(evicted) > 0 {
		s.log.Info("Expired sessions cleaned up", "count", len(evicted))
	}
	return len(evicted)
}

func (s *sessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
