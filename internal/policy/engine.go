package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long a policy read is reused before the
// repository is consulted again.
const DefaultCacheTTL = 30 * time.Second

type cachedPolicy struct {
	policy    Policy
	fetchedAt time.Time
}

// Engine answers capture questions and applies operator changes.
type Engine struct {
	repo     Repository
	logger   *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.Mutex // serializes read-modify-write in the mutators
	cache sync.Map   // botID -> cachedPolicy

	// genMu guards gen. A read only caches its result when no invalidation
	// happened while it was loading.
	genMu sync.Mutex
	gen   uint64
}

// NewEngine creates an engine over repo. A zero cacheTTL disables caching.
func NewEngine(repo Repository, cacheTTL time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		repo:     repo,
		logger:   logger,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Policy returns the current policy for botID. Absent configuration and
// repository failures both yield Default (fail closed).
func (e *Engine) Policy(ctx context.Context, botID string) Policy {
	if v, ok := e.cache.Load(botID); ok {
		c := v.(cachedPolicy)
		if e.cacheTTL > 0 && e.now().Sub(c.fetchedAt) < e.cacheTTL {
			return c.policy.Clone()
		}
	}

	e.genMu.Lock()
	gen := e.gen
	e.genMu.Unlock()

	p, err := e.load(ctx, botID)
	if err != nil {
		e.logger.Warn("Capture policy unavailable, treating as off",
			zap.String("bot_id", botID), zap.Error(err))
		return Default()
	}
	if e.cacheTTL > 0 {
		e.genMu.Lock()
		if e.gen == gen {
			e.cache.Store(botID, cachedPolicy{policy: p.Clone(), fetchedAt: e.now()})
		}
		e.genMu.Unlock()
	}
	return p
}

// ShouldCapture reports whether a message in the conversation is retained.
func (e *Engine) ShouldCapture(ctx context.Context, botID, conversationID string, isGroup bool) bool {
	return e.Policy(ctx, botID).Allows(conversationID, isGroup)
}

// ToggleExclusion flips the conversation's membership in the exclusion set
// and returns whether it is excluded afterwards.
func (e *Engine) ToggleExclusion(ctx context.Context, botID, conversationID string) (bool, error) {
	var excluded bool
	err := e.update(ctx, botID, func(p *Policy) {
		if p.IsExcluded(conversationID) {
			delete(p.Excluded, conversationID)
			excluded = false
			return
		}
		p.Excluded[conversationID] = struct{}{}
		excluded = true
	})
	return excluded, err
}

// SetMode changes the capture mode. Already captured content is untouched.
func (e *Engine) SetMode(ctx context.Context, botID string, mode Mode) error {
	return e.update(ctx, botID, func(p *Policy) { p.Mode = mode })
}

// SetAlternateDestination sets where direct-chat recoveries are forwarded.
func (e *Engine) SetAlternateDestination(ctx context.Context, botID, destination string) error {
	return e.update(ctx, botID, func(p *Policy) { p.AlternateDestination = destination })
}

// SetForwardToAlternate enables or disables forwarding of direct-chat recoveries.
func (e *Engine) SetForwardToAlternate(ctx context.Context, botID string, forward bool) error {
	return e.update(ctx, botID, func(p *Policy) { p.ForwardToAlternate = forward })
}

// Invalidate drops any cached policy for botID.
func (e *Engine) Invalidate(botID string) {
	e.genMu.Lock()
	e.gen++
	e.cache.Delete(botID)
	e.genMu.Unlock()
}

func (e *Engine) load(ctx context.Context, botID string) (Policy, error) {
	if e.repo == nil {
		return Default(), nil
	}
	p, err := e.repo.GetPolicy(ctx, botID)
	if errors.Is(err, ErrPolicyNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Policy{}, err
	}
	if p == nil {
		return Default(), nil
	}
	out := p.Clone()
	if out.Mode == "" {
		out.Mode = ModeOff
	}
	return out, nil
}

func (e *Engine) update(ctx context.Context, botID string, mutate func(p *Policy)) error {
	if e.repo == nil {
		return fmt.Errorf("no policy repository configured")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.load(ctx, botID)
	if err != nil {
		return fmt.Errorf("failed to load policy for %s: %w", botID, err)
	}
	mutate(&p)
	if err := e.repo.SavePolicy(ctx, botID, p); err != nil {
		return fmt.Errorf("failed to save policy for %s: %w", botID, err)
	}
	e.Invalidate(botID)
	e.logger.Info("Capture policy updated",
		zap.String("bot_id", botID),
		zap.String("mode", string(p.Mode)),
		zap.Int("excluded", len(p.Excluded)),
		zap.Bool("forward", p.ForwardToAlternate))
	return nil
}
