package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"SyncBoard/internal/rpc"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// HostServer accepts participant websockets, serves their calls and
// broadcasts notifications to all of them. It implements rpc.Broadcaster.
type HostServer struct {
	rpc.Handlers
	Peers    *PeerManager
	router   *mux.Router
	upgrader websocket.Upgrader
}

func NewHostServer() *HostServer {
	s := &HostServer{
		Peers:  NewPeerManager(),
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router.HandleFunc("/ws", s.serveWS).Methods(http.MethodGet)
	return s
}

// HandleFunc registers an extra HTTP route next to the websocket endpoint.
func (s *HostServer) HandleFunc(path string, fn http.HandlerFunc) {
	s.router.HandleFunc(path, fn).Methods(http.MethodGet)
}

func (s *HostServer) Handler() http.Handler { return s.router }

// Broadcast sends a notification to every connected participant.
func (s *HostServer) Broadcast(_ context.Context, method string, payload []byte) error {
	data, err := encodeEnvelope(envelope{Kind: kindNotify, Method: method, Payload: payload})
	if err != nil {
		return err
	}
	if slow := s.Peers.Broadcast(data); len(slow) > 0 {
		return fmt.Errorf("%w: dropped slow participants %v", rpc.ErrUnavailable, slow)
	}
	return nil
}

// ListenAndServe serves until ctx is cancelled.
func (s *HostServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Printf("[NET] Host listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

func (s *HostServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[NET] Upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	id := r.URL.Query().Get("peer")
	if id == "" {
		id = uuid.NewString()
	}
	peer := newPeer(id, conn)
	s.Peers.Add(peer)
	go peer.writePump()
	s.readPump(r.Context(), peer)
}

// readPump serves one participant's calls strictly in arrival order.
func (s *HostServer) readPump(ctx context.Context, peer *Peer) {
	defer func() {
		s.Peers.Remove(peer)
	}()
	peer.conn.SetReadDeadline(time.Now().Add(pongWait))
	peer.conn.SetPongHandler(func(string) error {
		peer.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := peer.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[NET] Read from %s failed: %v", peer.ID, err)
			}
			return
		}
		env, err := decodeEnvelope(data)
		if err != nil {
			log.Printf("[NET] Dropping undecodable frame from %s: %v", peer.ID, err)
			continue
		}
		if env.Kind != kindCall {
			log.Printf("[NET] Ignoring %s frame from %s", env.Kind, peer.ID)
			continue
		}

		reply := envelope{ID: env.ID, Kind: kindReply, Method: env.Method}
		out, err := s.Dispatch(ctx, env.Method, peer.ID, env.Payload)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Payload = out
		}
		raw, err := encodeEnvelope(reply)
		if err != nil {
			log.Printf("[NET] Failed to encode reply to %s: %v", peer.ID, err)
			continue
		}
		if !peer.enqueue(raw) {
			return
		}
	}
}
