package migration

import (
	"context"
	"log/slog"
	"sync"

	"ataraxia/internal/model"
)

type Migrator interface {
	Perform(ctx context.Context, identity model.Identity) Result
}

type Listener func(model.Identity, Result)

// Coordinator runs at most one migration per sign-in session. Results that
// arrive after the session ended, or after a different identity signed in, are
// dropped.
type Coordinator struct {
	migrator Migrator
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	active     *model.Identity
	running    bool
	processed  bool
	last       *Result
	cancel     context.CancelFunc
	listener   Listener

	wg sync.WaitGroup
}

func NewCoordinator(migrator Migrator, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{migrator: migrator, logger: logger}
}

// OnResult sets the listener that receives accepted results.
func (c *Coordinator) OnResult(fn Listener) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// SignedIn starts the session's migration unless it already ran or is
// running. A different identity replaces the current session.
func (c *Coordinator) SignedIn(ctx context.Context, identity model.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.UserID == identity.UserID {
		if c.running || c.processed {
			return
		}
	} else {
		c.endSessionLocked()
		id := identity
		c.active = &id
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	gen := c.generation

	c.wg.Add(1)
	go c.run(runCtx, cancel, gen, identity)
}

// SignedOut ends the session and discards any in-flight result.
func (c *Coordinator) SignedOut() {
	c.mu.Lock()
	c.endSessionLocked()
	c.mu.Unlock()
}

// Wait blocks until no migration is in flight.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Last returns the accepted result of the current session, if any.
func (c *Coordinator) Last() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, gen uint64, identity model.Identity) {
	defer c.wg.Done()
	defer cancel()

	result := c.migrator.Perform(ctx, identity)

	c.mu.Lock()
	if gen != c.generation || ctx.Err() != nil {
		if gen == c.generation {
			// Same session, cancelled by the caller: allow a retry.
			c.running = false
			c.cancel = nil
		}
		c.mu.Unlock()
		c.logger.Info("discarding migration result for ended session", slog.String("user_id", identity.UserID))
		return
	}
	c.running = false
	c.processed = true
	c.last = &result
	listener := c.listener
	c.mu.Unlock()

	if listener != nil {
		listener(identity, result)
	}
}

func (c *Coordinator) endSessionLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.active = nil
	c.running = false
	c.processed = false
	c.last = nil
}
