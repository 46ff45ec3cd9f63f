package services

import (
	"log/slog"

	"newsboard/internal/realtime"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "newsboard_sessions",
	Help: "Browser sessions currently held in memory.",
})

const DefaultMaxSessions = 1000

// Registry keeps the live sessions. The least recently used session is
// closed when the limit is reached.
type Registry struct {
	db       *realtime.Database
	system   *actor.ActorSystem
	pageSize int
	logger   *slog.Logger
	cache    *lru.Cache[string, *Session]
}

func NewRegistry(db *realtime.Database, pageSize, maxSessions int, logger *slog.Logger) (*Registry, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		db:       db,
		system:   actor.NewActorSystem(),
		pageSize: pageSize,
		logger:   logger.With("component", "sessions"),
	}
	cache, err := lru.NewWithEvict(maxSessions, func(id string, s *Session) {
		activeSessions.Dec()
		s.Close()
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// Get returns the session with id, if it is still alive.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return r.cache.Get(id)
}

// Create starts a new session under a fresh id.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.db, r.system, r.pageSize, r.logger)
	r.cache.Add(s.ID, s)
	activeSessions.Inc()
	r.logger.Debug("Session created", "session", s.ID, "sessions", r.cache.Len())
	return s
}

// GetOrCreate returns the session with id or a new one.
func (r *Registry) GetOrCreate(id string) *Session {
	if s, ok := r.Get(id); ok {
		return s
	}
	return r.Create()
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) {
	r.cache.Remove(id)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close closes every session.
func (r *Registry) Close() {
	r.cache.Purge()
}
