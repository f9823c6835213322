// Package rpc is the byte-oriented call/subscribe contract between the canvas
// engine and whatever carries its messages.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Procedures understood by hosts and participants.
const (
	// MethodSubmit carries a participant's action to the host; the reply is a SubmitReply.
	MethodSubmit = "canvas.submit"
	// MethodApply carries an accepted action from the host to every participant.
	MethodApply = "canvas.apply"
	// MethodFullState asks the host for the whole canvas.
	MethodFullState = "canvas.state"
)

var (
	ErrNoHandler   = errors.New("no handler for method")
	ErrUnavailable = errors.New("peer unavailable")
	ErrClosed      = errors.New("connection closed")
)

// Handler serves one inbound procedure. from identifies the remote peer.
type Handler func(ctx context.Context, from string, payload []byte) ([]byte, error)

// Endpoint is the participant side: it calls the host and receives notifications.
type Endpoint interface {
	Subscribe(method string, h Handler)
	Call(ctx context.Context, method string, payload []byte) ([]byte, error)
}

// Broadcaster is the host side: it serves calls and notifies every peer.
type Broadcaster interface {
	Subscribe(method string, h Handler)
	Broadcast(ctx context.Context, method string, payload []byte) error
}

// RemoteError is a handler failure reported back across the transport.
type RemoteError struct {
	Method string
	Msg    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Method, e.Msg)
}

// SubmitReply is the host's verdict on a submitted action.
type SubmitReply struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func EncodeReply(r SubmitReply) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeReply(data []byte) (SubmitReply, error) {
	var r SubmitReply
	if err := json.Unmarshal(data, &r); err != nil {
		return SubmitReply{}, fmt.Errorf("decode submit reply: %w", err)
	}
	return r, nil
}

// Handlers is a method table shared by the transports.
type Handlers struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

func (hs *Handlers) Subscribe(method string, h Handler) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.handlers == nil {
		hs.handlers = make(map[string]Handler)
	}
	hs.handlers[method] = h
}

// Dispatch runs the handler registered for method.
func (hs *Handlers) Dispatch(ctx context.Context, method, from string, payload []byte) ([]byte, error) {
	hs.mu.RLock()
	h, ok := hs.handlers[method]
	hs.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, method)
	}
	return h(ctx, from, payload)
}
