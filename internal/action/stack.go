package action

import "sync"

// UndoRedoStack is the confirmed history of one local user.
type UndoRedoStack struct {
	undo []Action
	redo []Action
	mu   sync.Mutex
}

func NewUndoRedoStack() *UndoRedoStack {
	return &UndoRedoStack{}
}

// PushUndo records a newly confirmed action. The redo branch is discarded.
func (s *UndoRedoStack) PushUndo(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = append(s.undo, a)
	s.redo = nil
}

// PopUndo moves the newest undoable action onto the redo stack and returns it.
func (s *UndoRedoStack) PopUndo() (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := pop(&s.undo)
	if ok {
		s.redo = append(s.redo, a)
	}
	return a, ok
}

// PopRedo moves the newest redoable action back onto the undo stack. Unlike
// PushUndo it leaves the rest of the redo stack in place.
func (s *UndoRedoStack) PopRedo() (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := pop(&s.redo)
	if ok {
		s.undo = append(s.undo, a)
	}
	return a, ok
}

// RestoreUndo reverses a PopUndo of the action with the given id, wherever it
// now sits on the redo stack.
func (s *UndoRedoStack) RestoreUndo(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := remove(&s.redo, id)
	if ok {
		s.undo = append(s.undo, a)
	}
	return ok
}

// RestoreRedo reverses a PopRedo of the action with the given id.
func (s *UndoRedoStack) RestoreRedo(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := remove(&s.undo, id)
	if ok {
		s.redo = append(s.redo, a)
	}
	return ok
}

func (s *UndoRedoStack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *UndoRedoStack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

func (s *UndoRedoStack) UndoLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo)
}

func (s *UndoRedoStack) RedoLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo)
}

func (s *UndoRedoStack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = nil
	s.redo = nil
}

func pop(stack *[]Action) (Action, bool) {
	n := len(*stack)
	if n == 0 {
		return Action{}, false
	}
	a := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return a, true
}

func remove(stack *[]Action, id ID) (Action, bool) {
	for i := len(*stack) - 1; i >= 0; i-- {
		if (*stack)[i].ID == id {
			a := (*stack)[i]
			*stack = append((*stack)[:i], (*stack)[i+1:]...)
			return a, true
		}
	}
	return Action{}, false
}
