package recovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often Run sweeps every session.
const DefaultSweepInterval = time.Minute

// Registry owns one Session per bot identity. Sessions share nothing but
// the collaborators in Deps.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	deps          Deps
	sweepInterval time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, sweepInterval time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	now := time.Now
	if deps.Config.Clock != nil {
		now = deps.Config.Clock
	}
	return &Registry{
		sessions:      make(map[string]*Session),
		deps:          deps,
		sweepInterval: sweepInterval,
		now:           now,
		logger:        deps.Logger,
	}
}

// Open returns the session for botID, creating it if needed, and records
// self as the account identity.
func (r *Registry) Open(botID, self string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[botID]; ok {
		if self != "" {
			s.SetSelf(self)
		}
		return s
	}
	s := NewSession(botID, self, r.deps)
	r.sessions[botID] = s
	r.logger.Info("Anti-delete session opened", zap.String("bot_id", botID))
	return s
}

// Session returns the session for botID, creating one with an unknown
// account identity if none exists.
func (r *Registry) Session(botID string) *Session {
	return r.Open(botID, "")
}

// Lookup returns the session for botID without creating it.
func (r *Registry) Lookup(botID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[botID]
	return s, ok
}

// Close tears down the session for botID and forgets it.
func (r *Registry) Close(botID string) {
	r.mu.Lock()
	s, ok := r.sessions[botID]
	delete(r.sessions, botID)
	r.mu.Unlock()
	if ok {
		s.Close()
		r.logger.Info("Anti-delete session closed", zap.String("bot_id", botID))
	}
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep expires stale state in every session.
func (r *Registry) Sweep(now time.Time) (entries, suppressed int) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		e, sup := s.Sweep(now)
		entries += e
		suppressed += sup
	}
	return entries, suppressed
}

// Run sweeps all sessions periodically until ctx is done, then closes them.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	defer r.CloseAll()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Session sweeper stopping")
			return nil
		case <-ticker.C:
			entries, suppressed := r.Sweep(r.now())
			if entries > 0 || suppressed > 0 {
				r.logger.Debug("Swept expired state",
					zap.Int("entries", entries),
					zap.Int("suppressed", suppressed))
			}
		}
	}
}
