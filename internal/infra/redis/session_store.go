package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"onepercent-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions live in a local map; each one is owned by the connection that
//     opened it, so nothing about play state is shared across instances.
//   - Redis holds a liveness marker per session (episode key as value) so
//     operators can count open sessions across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	episode := session.Snapshot().Episode.String()
	if err := s.client.Set(context.Background(), s.key(session.ID()), episode, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session", session.ID()).Msg("session marker write failed")
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Touch pushes back the expiry of the liveness marker of an open session.
func (s *SessionStore) Touch(sessionID string) {
	if _, ok := s.Get(sessionID); !ok {
		return
	}
	if err := s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("session marker refresh failed")
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
