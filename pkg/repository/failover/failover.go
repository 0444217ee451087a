// Package failover wraps a networked primary engine and an embedded fallback
// engine behind the common storage interface, degrading one-way from primary
// to fallback when the primary cannot be initialized.
package failover

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
)

// Controller presents the storage interface while routing every operation
// to the primary engine when healthy, or to the fallback engine after the
// primary failed to initialize.
//
// Degradation is one-way: once the fallback is engaged the controller never
// re-probes the primary for the remaining process lifetime, even if the
// primary recovers. Fallback data is ephemeral and does not survive restart.
type Controller struct {
	primary  interfaces.Engine
	fallback interfaces.Engine

	group singleflight.Group

	mu            sync.Mutex
	state         state
	active        interfaces.Engine
	usingFallback bool
}

var _ interfaces.Engine = &Controller{}

// New creates a failover controller over the given primary and fallback
// engines. Neither engine is touched until Initialize.
func New(primary, fallback interfaces.Engine) *Controller {
	return &Controller{
		primary:  primary,
		fallback: fallback,
	}
}

// Initialize attempts to bring up the primary engine, engaging the fallback
// on failure. Concurrent callers share a single in-flight attempt; once the
// controller is ready, subsequent calls are no-ops.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateReady {
		c.mu.Unlock()
		return nil
	}
	c.state = stateInitializing
	c.mu.Unlock()

	_, err, _ := c.group.Do("initialize", func() (any, error) {
		return nil, c.initialize(ctx)
	})
	return err
}

func (c *Controller) initialize(ctx context.Context) error {
	// Re-check under the lock: a previous flight may have settled between
	// the caller's fast-path check and joining this one.
	c.mu.Lock()
	if c.state == stateReady {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	logger := logging.From(ctx)

	primaryErr := c.primary.Initialize(ctx)
	if primaryErr == nil {
		c.setActive(c.primary, false)
		return nil
	}

	logger.Warn("primary storage engine failed to initialize, falling back to embedded store; fallback data will NOT survive a process restart",
		"error", primaryErr.Error(),
	)

	if err := c.fallback.Initialize(ctx); err != nil {
		c.mu.Lock()
		c.state = stateUninitialized
		c.mu.Unlock()
		return goerr.Wrap(types.ErrStorageUnavailable, "both primary and fallback engines failed to initialize",
			goerr.V("primary_error", primaryErr.Error()),
			goerr.V("fallback_error", err.Error()),
		)
	}

	c.setActive(c.fallback, true)
	return nil
}

func (c *Controller) setActive(engine interfaces.Engine, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = engine
	c.usingFallback = fallback
	c.state = stateReady
}

// IsUsingFallback reports whether operations are routed to the fallback engine
func (c *Controller) IsUsingFallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usingFallback
}

// engine lazily ensures initialization and returns the active engine
func (c *Controller) engine(ctx context.Context) (interfaces.Engine, error) {
	c.mu.Lock()
	if c.state == stateReady {
		active := c.active
		c.mu.Unlock()
		return active, nil
	}
	c.mu.Unlock()

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateReady || c.active == nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "storage controller is not ready")
	}
	return c.active, nil
}

// SaveTask delegates to the active engine
func (c *Controller) SaveTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.SaveTask(ctx, task)
}

// UpdateTask delegates to the active engine
func (c *Controller) UpdateTask(ctx context.Context, conversationID, messageID int64, title, description, rawText string) error {
	engine, err := c.engine(ctx)
	if err != nil {
		return err
	}
	return engine.UpdateTask(ctx, conversationID, messageID, title, description, rawText)
}

// TaskExists delegates to the active engine
func (c *Controller) TaskExists(ctx context.Context, conversationID, messageID int64) (bool, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return false, err
	}
	return engine.TaskExists(ctx, conversationID, messageID)
}

// FindDuplicateOpenTask delegates to the active engine
func (c *Controller) FindDuplicateOpenTask(ctx context.Context, title string) (*model.Task, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.FindDuplicateOpenTask(ctx, title)
}

// GetTasks delegates to the active engine
func (c *Controller) GetTasks(ctx context.Context, opts ...interfaces.ListOption) ([]*model.Task, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.GetTasks(ctx, opts...)
}

// GetTaskByID delegates to the active engine
func (c *Controller) GetTaskByID(ctx context.Context, id types.TaskID) (*model.Task, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.GetTaskByID(ctx, id)
}

// UpdateTaskStatus delegates to the active engine
func (c *Controller) UpdateTaskStatus(ctx context.Context, id types.TaskID, status types.TaskStatus) (bool, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return false, err
	}
	return engine.UpdateTaskStatus(ctx, id, status)
}

// DeleteTask delegates to the active engine
func (c *Controller) DeleteTask(ctx context.Context, id types.TaskID) (bool, error) {
	engine, err := c.engine(ctx)
	if err != nil {
		return false, err
	}
	return engine.DeleteTask(ctx, id)
}

// Close closes both engines independently. A failure to close one engine
// (for example because it was never initialized) neither prevents closing
// the other nor propagates as an error.
func (c *Controller) Close() error {
	ctx := context.Background()

	if err := c.primary.Close(); err != nil {
		logging.From(ctx).Error("failed to close primary engine", "error", err.Error())
	}
	if err := c.fallback.Close(); err != nil {
		logging.From(ctx).Error("failed to close fallback engine", "error", err.Error())
	}
	return nil
}
