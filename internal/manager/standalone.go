package manager

import (
	"context"
	"errors"
	"fmt"
	"log"

	"SyncBoard/internal/action"
	"SyncBoard/internal/queue"
	"SyncBoard/internal/state"
)

// Standalone is a single-user board with no network. It applies everything
// directly and never checks for conflicts: it is the only writer.
type Standalone struct {
	core
	inbox *queue.MessageQueue[[]byte]
}

func NewStandalone(cfg Config) *Standalone {
	s := &Standalone{inbox: queue.New[[]byte](cfg.QueueCapacity)}
	s.init(cfg)
	return s
}

func (s *Standalone) commit(a action.Action, err error) (action.Action, error) {
	if err != nil {
		return action.Action{}, err
	}
	s.mu.Lock()
	if err := s.apply(a); err != nil {
		s.mu.Unlock()
		return action.Action{}, err
	}
	s.history.PushUndo(a)
	s.mu.Unlock()

	s.notifyUpdate()
	return a, nil
}

func (s *Standalone) RequestCreate(_ context.Context, shape state.Shape) (action.Action, error) {
	return s.commit(s.factory.CreateCreate(shape, s.userID))
}

func (s *Standalone) RequestModify(_ context.Context, shape state.Shape) (action.Action, error) {
	return s.commit(s.factory.CreateModify(s.canvas, shape.ID, shape, s.userID))
}

func (s *Standalone) RequestDelete(_ context.Context, id state.ShapeID) (action.Action, error) {
	return s.commit(s.factory.CreateDelete(s.canvas, id, s.userID))
}

// RequestUndo applies the inverse of the newest action directly, without
// re-checking the factory's existence preconditions.
func (s *Standalone) RequestUndo(_ context.Context) error {
	s.mu.Lock()
	a, ok := s.history.PopUndo()
	if !ok {
		s.mu.Unlock()
		return ErrNothingToUndo
	}
	inv, err := s.factory.CreateInverse(a, s.userID)
	if err == nil {
		err = s.apply(inv)
	}
	if err != nil {
		s.history.RestoreUndo(a.ID)
		s.mu.Unlock()
		return fmt.Errorf("undo %s: %w", a, err)
	}
	s.mu.Unlock()

	s.notifyUpdate()
	return nil
}

// RequestRedo re-applies the undone action's new state verbatim.
func (s *Standalone) RequestRedo(_ context.Context) error {
	s.mu.Lock()
	a, ok := s.history.PopRedo()
	if !ok {
		s.mu.Unlock()
		return ErrNothingToRedo
	}
	if err := s.apply(a); err != nil {
		s.history.RestoreRedo(a.ID)
		s.mu.Unlock()
		return fmt.Errorf("redo %s: %w", a, err)
	}
	s.mu.Unlock()

	s.notifyUpdate()
	return nil
}

// ProcessIncomingAction applies a serialized action unconditionally. It is
// used to replay a journal into a fresh board.
func (s *Standalone) ProcessIncomingAction(_ context.Context, payload []byte) error {
	a, err := action.Decode(payload)
	if err != nil {
		log.Printf("[STANDALONE] Dropping malformed action: %v", err)
		return err
	}
	s.mu.Lock()
	err = s.apply(a)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyUpdate()
	return nil
}

// Post queues a serialized action for Run.
func (s *Standalone) Post(ctx context.Context, payload []byte) error {
	return s.inbox.Post(ctx, payload)
}

func (s *Standalone) Run(ctx context.Context) error {
	return drain(ctx, s.inbox.Take, func(payload []byte) {
		if err := s.ProcessIncomingAction(ctx, payload); err != nil && !errors.Is(err, action.ErrMalformed) {
			log.Printf("[STANDALONE] Failed to apply action: %v", err)
		}
	})
}
