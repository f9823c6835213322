package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"SyncBoard/internal/action"
	"SyncBoard/internal/queue"
	"SyncBoard/internal/rpc"
	"SyncBoard/internal/state"
)

// Participant never applies its own requests directly. It submits them to the
// host, remembers them as pending, and applies whatever the host broadcasts.
// Only the echo of its own request makes an action undoable.
type Participant struct {
	core
	host        rpc.Endpoint
	inbox       *queue.MessageQueue[[]byte]
	pending     *pendingSet
	pendingTTL  time.Duration
	callTimeout time.Duration
}

func NewParticipant(cfg Config, host rpc.Endpoint) *Participant {
	p := &Participant{
		host:        host,
		inbox:       queue.New[[]byte](cfg.QueueCapacity),
		pending:     newPendingSet(),
		pendingTTL:  cfg.PendingTTL,
		callTimeout: cfg.CallTimeout,
	}
	if p.pendingTTL <= 0 {
		p.pendingTTL = DefaultPendingTTL
	}
	if p.callTimeout <= 0 {
		p.callTimeout = DefaultCallTimeout
	}
	p.init(cfg)
	host.Subscribe(rpc.MethodApply, p.handleApply)
	return p
}

// handleApply runs on the transport's goroutine and only queues the broadcast.
func (p *Participant) handleApply(ctx context.Context, _ string, payload []byte) ([]byte, error) {
	return nil, p.inbox.Post(ctx, payload)
}

// Sync replaces the local canvas with the host's. Call it before Run so that
// broadcasts queued meanwhile are replayed on top of the snapshot.
func (p *Participant) Sync(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	raw, err := p.host.Call(callCtx, rpc.MethodFullState, nil)
	if err != nil {
		return fmt.Errorf("%w: request full state: %v", ErrTransport, err)
	}
	shapes, err := action.DecodeSnapshot(raw)
	if err != nil {
		return err
	}
	p.canvas.ReplaceAll(shapes)
	log.Printf("[PARTICIPANT] Synchronised %d shapes from host", len(shapes))
	p.notifyUpdate()
	return nil
}

func (p *Participant) RequestCreate(ctx context.Context, shape state.Shape) (action.Action, error) {
	a, err := p.factory.CreateCreate(shape, p.userID)
	if err != nil {
		return action.Action{}, err
	}
	return a, p.submit(ctx, a, fromRequest, "")
}

func (p *Participant) RequestModify(ctx context.Context, shape state.Shape) (action.Action, error) {
	a, err := p.factory.CreateModify(p.canvas, shape.ID, shape, p.userID)
	if err != nil {
		return action.Action{}, err
	}
	return a, p.submit(ctx, a, fromRequest, "")
}

func (p *Participant) RequestDelete(ctx context.Context, id state.ShapeID) (action.Action, error) {
	a, err := p.factory.CreateDelete(p.canvas, id, p.userID)
	if err != nil {
		return action.Action{}, err
	}
	return a, p.submit(ctx, a, fromRequest, "")
}

// RequestUndo submits the inverse of the newest confirmed action. The host may
// reject it, in which case history is restored.
func (p *Participant) RequestUndo(ctx context.Context) error {
	p.mu.Lock()
	a, ok := p.history.PopUndo()
	if !ok {
		p.mu.Unlock()
		return ErrNothingToUndo
	}
	inv, err := p.factory.CreateInverse(a, p.userID)
	if err != nil {
		p.history.RestoreUndo(a.ID)
		p.mu.Unlock()
		return fmt.Errorf("undo %s: %w", a, err)
	}
	p.mu.Unlock()
	return p.submit(ctx, inv, fromUndo, a.ID)
}

// RequestRedo resubmits the newest undone action against the canvas as this
// participant sees it. This is best effort: if the shape has changed on the
// host in the meantime the redo is rejected.
func (p *Participant) RequestRedo(ctx context.Context) error {
	p.mu.Lock()
	a, ok := p.history.PopRedo()
	if !ok {
		p.mu.Unlock()
		return ErrNothingToRedo
	}
	redo, err := p.factory.CreateRedo(p.canvas, a, p.userID)
	if err != nil {
		p.history.RestoreRedo(a.ID)
		p.mu.Unlock()
		return fmt.Errorf("redo %s: %w", a, err)
	}
	p.mu.Unlock()
	return p.submit(ctx, redo, fromRedo, a.ID)
}

// submit sends a to the host and waits for its verdict.
func (p *Participant) submit(ctx context.Context, a action.Action, o origin, source action.ID) error {
	payload, err := action.Encode(a)
	if err != nil {
		p.mu.Lock()
		p.restore(o, source)
		p.mu.Unlock()
		p.notifyReject(a, err)
		return err
	}

	p.mu.Lock()
	p.pending.add(&pendingEntry{action: a, origin: o, source: source, submitted: time.Now()})
	p.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	raw, err := p.host.Call(callCtx, rpc.MethodSubmit, payload)
	if err != nil {
		return p.settleFailure(a, fmt.Errorf("%w: %v", ErrTransport, err))
	}
	reply, err := rpc.DecodeReply(raw)
	if err != nil {
		return p.settleFailure(a, fmt.Errorf("%w: %v", ErrTransport, err))
	}
	if !reply.Accepted {
		return p.settleFailure(a, fmt.Errorf("%w: %s", ErrConflict, reply.Reason))
	}

	p.mu.Lock()
	if e, ok := p.pending.get(a.ID); ok {
		if e.echoed {
			p.pending.remove(a.ID)
		} else {
			e.answered = true
			e.answeredAt = time.Now()
		}
	}
	p.mu.Unlock()
	return nil
}

// settleFailure rolls back a submission the host did not accept. If the echo
// already arrived the action took effect after all and nothing is rolled back.
func (p *Participant) settleFailure(a action.Action, cause error) error {
	p.mu.Lock()
	e, ok := p.pending.get(a.ID)
	if !ok {
		p.mu.Unlock()
		return cause
	}
	p.pending.remove(a.ID)
	if e.echoed {
		p.mu.Unlock()
		return nil
	}
	p.restore(e.origin, e.source)
	p.mu.Unlock()

	log.Printf("[PARTICIPANT] %s not applied: %v", a, cause)
	p.notifyReject(a, cause)
	return cause
}

// restore reverses the history move made when an undo or redo was requested.
// p.mu must be held.
func (p *Participant) restore(o origin, source action.ID) {
	switch o {
	case fromUndo:
		p.history.RestoreUndo(source)
	case fromRedo:
		p.history.RestoreRedo(source)
	}
}

// ProcessIncomingAction applies a host broadcast unconditionally and, if it
// echoes one of this participant's own requests, promotes it to history.
func (p *Participant) ProcessIncomingAction(_ context.Context, payload []byte) error {
	a, err := action.Decode(payload)
	if err != nil {
		log.Printf("[PARTICIPANT] Dropping malformed broadcast: %v", err)
		return err
	}

	p.mu.Lock()
	if err := p.apply(a); err != nil {
		p.mu.Unlock()
		return err
	}
	if e, ok := p.pending.get(a.ID); ok {
		if e.origin == fromRequest {
			p.history.PushUndo(e.action)
		}
		if e.answered {
			p.pending.remove(a.ID)
		} else {
			e.echoed = true
		}
	}
	p.mu.Unlock()

	p.notifyUpdate()
	return nil
}

// EvictStale drops accepted actions whose echo has not arrived within the
// pending TTL of the host's reply. The host applied them, so nothing is rolled
// back; an echo arriving later is applied but not made undoable. Submissions
// still waiting for a reply are bounded by the call timeout instead.
func (p *Participant) EvictStale(now time.Time) int {
	p.mu.Lock()
	stale := p.pending.expired(now.Add(-p.pendingTTL))
	p.mu.Unlock()

	for _, e := range stale {
		log.Printf("[PARTICIPANT] No echo for accepted %s, dropping it", e.action)
	}
	return len(stale)
}

// Pending reports how many submissions are still awaiting the host.
func (p *Participant) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.len()
}

// Run applies queued broadcasts in arrival order and evicts stale pending
// actions until ctx is done.
func (p *Participant) Run(ctx context.Context) error {
	go func() {
		interval := p.pendingTTL / 2
		if interval <= 0 {
			interval = p.pendingTTL
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				p.EvictStale(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	return drain(ctx, p.inbox.Take, func(payload []byte) {
		if err := p.ProcessIncomingAction(ctx, payload); err != nil && !errors.Is(err, action.ErrMalformed) {
			log.Printf("[PARTICIPANT] Failed to apply broadcast: %v", err)
		}
	})
}

// Close stops accepting broadcasts. Run returns once the queue is drained.
func (p *Participant) Close() {
	p.inbox.Close()
}
