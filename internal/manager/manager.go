// Package manager reconciles canvas actions for the three session roles:
// a single-user standalone board, the authoritative host and a participant.
package manager

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"SyncBoard/internal/action"
	"SyncBoard/internal/queue"
	"SyncBoard/internal/state"
)

// Manager is what the drawing surface talks to, whatever the role.
type Manager interface {
	RequestCreate(ctx context.Context, shape state.Shape) (action.Action, error)
	RequestModify(ctx context.Context, shape state.Shape) (action.Action, error)
	RequestDelete(ctx context.Context, id state.ShapeID) (action.Action, error)
	RequestUndo(ctx context.Context) error
	RequestRedo(ctx context.Context) error

	// ProcessIncomingAction handles one serialized action from the network.
	ProcessIncomingAction(ctx context.Context, payload []byte) error
	// Run drains the inbound queue until ctx is done.
	Run(ctx context.Context) error

	SetOnUpdate(fn func())
	SetOnReject(fn func(a action.Action, err error))
	CanvasState() *state.CanvasState
	CanUndo() bool
	CanRedo() bool
	UserID() string
}

// Journal records every action applied to the canvas.
type Journal interface {
	Append(a action.Action) error
}

type Config struct {
	UserID string
	Clock  state.Clock
	// Canvas is used as-is when set, e.g. after restoring a snapshot.
	Canvas  *state.CanvasState
	Journal Journal
	// QueueCapacity bounds the inbound queue; 0 means unbounded.
	QueueCapacity int
	// PendingTTL is how long a participant waits for the echo of its own action.
	PendingTTL time.Duration
	// CallTimeout bounds each call to the host.
	CallTimeout time.Duration
}

const (
	DefaultPendingTTL  = 30 * time.Second
	DefaultCallTimeout = 10 * time.Second
)

// core is the state every role shares.
type core struct {
	userID  string
	canvas  *state.CanvasState
	factory *action.Factory
	history *action.UndoRedoStack
	journal Journal

	// mu makes each compound operation on canvas, history and pending
	// bookkeeping a single critical section.
	mu sync.Mutex

	cbMu     sync.RWMutex
	onUpdate func()
	onReject func(action.Action, error)
}

func (c *core) init(cfg Config) {
	c.userID = cfg.UserID
	c.canvas = cfg.Canvas
	if c.canvas == nil {
		c.canvas = state.NewCanvasState()
	}
	c.factory = action.NewFactory(cfg.Clock)
	c.history = action.NewUndoRedoStack()
	c.journal = cfg.Journal
}

func (c *core) SetOnUpdate(fn func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onUpdate = fn
}

func (c *core) SetOnReject(fn func(action.Action, error)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onReject = fn
}

func (c *core) notifyUpdate() {
	c.cbMu.RLock()
	fn := c.onUpdate
	c.cbMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *core) notifyReject(a action.Action, err error) {
	c.cbMu.RLock()
	fn := c.onReject
	c.cbMu.RUnlock()
	if fn != nil {
		fn(a, err)
	}
}

func (c *core) CanvasState() *state.CanvasState { return c.canvas }

func (c *core) CanUndo() bool { return c.history.CanUndo() }

func (c *core) CanRedo() bool { return c.history.CanRedo() }

func (c *core) UserID() string { return c.userID }

// History exposes the local undo/redo stacks.
func (c *core) History() *action.UndoRedoStack { return c.history }

// apply writes a's new state to the canvas and journals it.
func (c *core) apply(a action.Action) error {
	if err := c.canvas.ApplyState(a.ShapeID, a.NewState); err != nil {
		return err
	}
	if c.journal != nil {
		if err := c.journal.Append(a); err != nil {
			log.Printf("[STORE] Failed to journal %s: %v", a, err)
		}
	}
	return nil
}

// drain feeds queued payloads to process until ctx is done.
func drain[T any](ctx context.Context, take func(context.Context) (T, error), process func(T)) error {
	for {
		msg, err := take(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return nil
			}
			return err
		}
		process(msg)
	}
}
