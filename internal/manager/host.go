package manager

import (
	"context"
	"fmt"
	"log"

	"SyncBoard/internal/action"
	"SyncBoard/internal/queue"
	"SyncBoard/internal/rpc"
	"SyncBoard/internal/state"
)

// submission is one participant action waiting for the host's verdict.
type submission struct {
	from    string
	payload []byte
	verdict chan error
}

// Host owns the canonical canvas. Every write, local or remote, is checked
// against the current entry for its shape, applied, and broadcast in the same
// critical section, so the host's processing order is the order of record.
type Host struct {
	core
	peers rpc.Broadcaster
	inbox *queue.MessageQueue[submission]
}

func NewHost(cfg Config, peers rpc.Broadcaster) *Host {
	h := &Host{
		peers: peers,
		inbox: queue.New[submission](cfg.QueueCapacity),
	}
	h.init(cfg)
	if peers != nil {
		peers.Subscribe(rpc.MethodSubmit, h.handleSubmit)
		peers.Subscribe(rpc.MethodFullState, h.handleFullState)
	}
	return h
}

// handleSubmit queues a participant's action and replies once Run has ruled on it.
func (h *Host) handleSubmit(ctx context.Context, from string, payload []byte) ([]byte, error) {
	verdict := make(chan error, 1)
	if err := h.inbox.Post(ctx, submission{from: from, payload: payload, verdict: verdict}); err != nil {
		return nil, err
	}
	select {
	case err := <-verdict:
		reply := rpc.SubmitReply{Accepted: err == nil}
		if err != nil {
			reply.Reason = err.Error()
		}
		return rpc.EncodeReply(reply)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Host) handleFullState(_ context.Context, from string, _ []byte) ([]byte, error) {
	h.mu.Lock()
	snapshot := h.canvas.Snapshot()
	h.mu.Unlock()
	log.Printf("[HOST] Sending full state (%d shapes) to %s", len(snapshot), from)
	return action.EncodeSnapshot(snapshot)
}

// Run processes queued submissions in arrival order.
func (h *Host) Run(ctx context.Context) error {
	return drain(ctx, h.inbox.Take, func(sub submission) {
		err := h.ProcessIncomingAction(ctx, sub.payload)
		if err != nil {
			log.Printf("[HOST] Rejected submission from %s: %v", sub.from, err)
		}
		if sub.verdict != nil {
			sub.verdict <- err
		}
	})
}

// ProcessIncomingAction validates a serialized action against the canvas and,
// if it still matches, applies and broadcasts it.
func (h *Host) ProcessIncomingAction(ctx context.Context, payload []byte) error {
	a, err := action.Decode(payload)
	if err != nil {
		log.Printf("[HOST] Dropping malformed action: %v", err)
		return err
	}
	h.mu.Lock()
	err = h.commitLocked(ctx, a)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	h.notifyUpdate()
	return nil
}

// commitLocked is the compare-and-apply step. h.mu must be held.
func (h *Host) commitLocked(ctx context.Context, a action.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	current, exists := h.canvas.Get(a.ShapeID)
	switch {
	case a.Type == action.Create:
		if exists {
			return fmt.Errorf("%w: %s already exists", ErrConflict, a.ShapeID)
		}
	case !exists:
		return fmt.Errorf("%w: %s does not exist", ErrConflict, a.ShapeID)
	case !a.PrevState.Equal(current):
		return fmt.Errorf("%w: %s changed since %s was built", ErrConflict, a.ShapeID, a.ID)
	}

	// Encode first: an action that cannot be broadcast must not be applied.
	payload, err := action.Encode(a)
	if err != nil {
		return fmt.Errorf("%w: %v", action.ErrMalformed, err)
	}
	if err := h.apply(a); err != nil {
		return err
	}
	log.Printf("[HOST] Accepted %s", a)

	if h.peers == nil {
		return nil
	}
	if err := h.peers.Broadcast(ctx, rpc.MethodApply, payload); err != nil {
		log.Printf("[HOST] Broadcast of %s incomplete: %v", a.ID, err)
	}
	return nil
}

// local runs a host-side request through the same validation as remote ones.
func (h *Host) local(ctx context.Context, build func() (action.Action, error)) (action.Action, error) {
	h.mu.Lock()
	a, err := build()
	if err == nil {
		err = h.commitLocked(ctx, a)
	}
	if err == nil {
		h.history.PushUndo(a)
	}
	h.mu.Unlock()

	if err != nil {
		if a.ID != "" {
			h.notifyReject(a, err)
		}
		return action.Action{}, err
	}
	h.notifyUpdate()
	return a, nil
}

func (h *Host) RequestCreate(ctx context.Context, shape state.Shape) (action.Action, error) {
	return h.local(ctx, func() (action.Action, error) {
		return h.factory.CreateCreate(shape, h.userID)
	})
}

func (h *Host) RequestModify(ctx context.Context, shape state.Shape) (action.Action, error) {
	return h.local(ctx, func() (action.Action, error) {
		return h.factory.CreateModify(h.canvas, shape.ID, shape, h.userID)
	})
}

func (h *Host) RequestDelete(ctx context.Context, id state.ShapeID) (action.Action, error) {
	return h.local(ctx, func() (action.Action, error) {
		return h.factory.CreateDelete(h.canvas, id, h.userID)
	})
}

// RequestUndo submits the inverse of the newest local action. If a participant
// has changed the shape since, the inverse is rejected and history is restored.
func (h *Host) RequestUndo(ctx context.Context) error {
	h.mu.Lock()
	a, ok := h.history.PopUndo()
	if !ok {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	inv, err := h.factory.CreateInverse(a, h.userID)
	if err == nil {
		err = h.commitLocked(ctx, inv)
	}
	if err != nil {
		h.history.RestoreUndo(a.ID)
	}
	h.mu.Unlock()

	if err != nil {
		if inv.ID != "" {
			h.notifyReject(inv, err)
		}
		return fmt.Errorf("undo %s: %w", a, err)
	}
	h.notifyUpdate()
	return nil
}

func (h *Host) RequestRedo(ctx context.Context) error {
	h.mu.Lock()
	a, ok := h.history.PopRedo()
	if !ok {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	redo, err := h.factory.CreateRedo(h.canvas, a, h.userID)
	if err == nil {
		err = h.commitLocked(ctx, redo)
	}
	if err != nil {
		h.history.RestoreRedo(a.ID)
	}
	h.mu.Unlock()

	if err != nil {
		if redo.ID != "" {
			h.notifyReject(redo, err)
		}
		return fmt.Errorf("redo %s: %w", a, err)
	}
	h.notifyUpdate()
	return nil
}

// Close stops accepting submissions. Run returns once the queue is drained.
func (h *Host) Close() {
	h.inbox.Close()
}
