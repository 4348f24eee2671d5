package session

import (
	"errors"
	"sync"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"go.uber.org/zap"
)

var (
	ErrSessionExists = errors.New("session already exists")
	ErrAtCapacity    = errors.New("session capacity reached")
)

// Registry is the single authority for live duel sessions. No other
// component holds a second copy of the session map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*DuelSession
	byConn   map[string]string // connID -> sessionID
	capacity int
	log      *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*DuelSession),
		byConn:   make(map[string]string),
		capacity: model.MaxConcurrentDuels,
		log:      logger,
	}
}

func (r *Registry) Create(s *DuelSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.capacity {
		return ErrAtCapacity
	}
	if _, exists := r.sessions[s.ID]; exists {
		return ErrSessionExists
	}
	r.sessions[s.ID] = s
	for _, p := range s.Players() {
		r.byConn[p.ConnID] = s.ID
	}
	r.log.Info("session created",
		zap.String("sessionId", s.ID),
		zap.Int("liveSessions", len(r.sessions)))
	return nil
}

func (r *Registry) Get(sessionID string) (*DuelSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// SessionForConn resolves the session a connection belongs to, if any.
func (r *Registry) SessionForConn(connID string) (*DuelSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for _, p := range s.Players() {
		if r.byConn[p.ConnID] == sessionID {
			delete(r.byConn, p.ConnID)
		}
	}
	delete(r.sessions, sessionID)
	r.log.Info("session removed",
		zap.String("sessionId", sessionID),
		zap.Int("liveSessions", len(r.sessions)))
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepStale drops sessions that are still STARTING with nobody attached
// after the stale timeout. Backstop for matched players who never joined.
func (r *Registry) SweepStale(maxAge time.Duration) int {
	r.mu.RLock()
	var stale []string
	for id, s := range r.sessions {
		if s.Status() == model.StatusStarting && !s.HasAttached() && time.Since(s.CreatedAt()) > maxAge {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.log.Warn("disposing stale session", zap.String("sessionId", id))
		r.Remove(id)
	}
	return len(stale)
}
