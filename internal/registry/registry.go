package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
)

// ErrSessionNotFound is returned by Get for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Registry owns all live sessions for the process. It is shared across
// connections and endpoints; a single coarse lock serializes mutation.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*entities.Session
	maxHistory int
	logger     *zap.Logger
}

// New creates an empty registry. maxHistory bounds each session's
// conversation history.
func New(maxHistory int, logger *zap.Logger) *Registry {
	return &Registry{
		sessions:   make(map[string]*entities.Session),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Create allocates a session. An empty id gets a generated one. Creating an
// id that already exists replaces the previous session; the duplex endpoint
// owns id uniqueness per connection.
func (r *Registry) Create(id string, credentials entities.Credentials) *entities.Session {
	if id == "" {
		id = uuid.NewString()
	}

	session := entities.NewSession(id, credentials, r.maxHistory)

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	r.logger.Info("Session created", zap.String("sessionID", id))
	return session
}

// Get returns the session for id or ErrSessionNotFound. It never fabricates
// a session.
func (r *Registry) Get(id string) (*entities.Session, error) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Destroy removes a session. Destroying an unknown id is a no-op.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.logger.Info("Session destroyed", zap.String("sessionID", id))
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
