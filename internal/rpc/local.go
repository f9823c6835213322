package rpc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// HostPeerID is the sender id participants see on host notifications.
const HostPeerID = "host"

// Network connects one host and any number of participants inside a single
// process. Calls and notifications are delivered synchronously.
type Network struct {
	host  *LocalHost
	peers map[string]*LocalPeer
	mu    sync.RWMutex
}

func NewNetwork() *Network {
	n := &Network{peers: make(map[string]*LocalPeer)}
	n.host = &LocalHost{net: n}
	return n
}

func (n *Network) Host() *LocalHost { return n.host }

// Join attaches a participant under id, replacing any previous one.
func (n *Network) Join(id string) *LocalPeer {
	p := &LocalPeer{id: id, net: n}
	n.mu.Lock()
	n.peers[id] = p
	n.mu.Unlock()
	return p
}

func (n *Network) Leave(id string) {
	n.mu.Lock()
	delete(n.peers, id)
	n.mu.Unlock()
}

type LocalHost struct {
	Handlers
	net *Network
}

// Broadcast notifies every reachable participant, in join-id order.
func (h *LocalHost) Broadcast(ctx context.Context, method string, payload []byte) error {
	h.net.mu.RLock()
	peers := make([]*LocalPeer, 0, len(h.net.peers))
	for _, p := range h.net.peers {
		peers = append(peers, p)
	}
	h.net.mu.RUnlock()
	slices.SortFunc(peers, func(a, b *LocalPeer) int { return strings.Compare(a.id, b.id) })

	var errs []error
	for _, p := range peers {
		if p.down.Load() {
			continue
		}
		if _, err := p.Dispatch(ctx, method, HostPeerID, slices.Clone(payload)); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

type LocalPeer struct {
	Handlers
	id   string
	net  *Network
	down atomic.Bool
}

func (p *LocalPeer) ID() string { return p.id }

// SetDown makes the peer unreachable in both directions.
func (p *LocalPeer) SetDown(down bool) { p.down.Store(down) }

func (p *LocalPeer) Call(ctx context.Context, method string, payload []byte) ([]byte, error) {
	if p.down.Load() {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := p.net.host.Dispatch(ctx, method, p.id, slices.Clone(payload))
	if err != nil {
		return nil, &RemoteError{Method: method, Msg: err.Error()}
	}
	return out, nil
}
