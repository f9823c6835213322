package net

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

const (
	kindCall   = "call"
	kindReply  = "reply"
	kindNotify = "notify"
)

// envelope frames every websocket message in both directions.
type envelope struct {
	ID      uint64 `json:"id,omitempty"`
	Kind    string `json:"kind"`
	Method  string `json:"method,omitempty"`
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

func encodeEnvelope(env envelope) ([]byte, error) {
	return json.Marshal(env)
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// Peer is one participant connected to the host.
type Peer struct {
	ID     string
	conn   *websocket.Conn
	send   chan []byte
	closed bool
	mu     sync.Mutex
}

func newPeer(id string, conn *websocket.Conn) *Peer {
	return &Peer{ID: id, conn: conn, send: make(chan []byte, sendBuffer)}
}

// enqueue hands data to the write pump. A peer that cannot keep up is dropped
// rather than stalling the host.
func (p *Peer) enqueue(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

func (p *Peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

// writePump is the only goroutine writing to the connection.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[NET] Write to %s failed: %v", p.ID, err)
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PeerManager is used by the host to track connected participants.
type PeerManager struct {
	peers map[string]*Peer
	mu    sync.RWMutex
}

func NewPeerManager() *PeerManager {
	return &PeerManager{
		peers: make(map[string]*Peer),
	}
}

// Add registers peer, closing any previous connection under the same id.
func (pm *PeerManager) Add(peer *Peer) {
	pm.mu.Lock()
	old := pm.peers[peer.ID]
	pm.peers[peer.ID] = peer
	pm.mu.Unlock()
	if old != nil {
		old.close()
	}
	log.Printf("[NET] Participant %s connected from %s", peer.ID, peer.conn.RemoteAddr())
}

// Remove unregisters peer if it is still the current connection for its id.
func (pm *PeerManager) Remove(peer *Peer) {
	pm.mu.Lock()
	if pm.peers[peer.ID] == peer {
		delete(pm.peers, peer.ID)
	}
	pm.mu.Unlock()
	peer.close()
	log.Printf("[NET] Participant %s disconnected", peer.ID)
}

func (pm *PeerManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// Broadcast queues data for every peer. Peers whose send buffer is full are
// disconnected; their ids are returned.
func (pm *PeerManager) Broadcast(data []byte) []string {
	pm.mu.RLock()
	var slow []*Peer
	for _, p := range pm.peers {
		if !p.enqueue(data) {
			slow = append(slow, p)
		}
	}
	pm.mu.RUnlock()

	ids := make([]string, 0, len(slow))
	for _, p := range slow {
		pm.Remove(p)
		ids = append(ids, p.ID)
	}
	return ids
}
