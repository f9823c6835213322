package net

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"SyncBoard/internal/rpc"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
)

// Client is a participant's connection to the host. It implements rpc.Endpoint.
type Client struct {
	rpc.Handlers
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	nextID uint64
	calls  map[uint64]chan envelope
	mu     sync.Mutex
	once   sync.Once
}

// HostURL builds the websocket URL for a host address such as "10.0.0.2:8888".
func HostURL(addr, peerID string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	if peerID != "" {
		u.RawQuery = url.Values{"peer": {peerID}}.Encode()
	}
	return u.String()
}

// Dial connects to the host, retrying with exponential backoff until maxWait
// has passed or ctx is done.
func Dial(ctx context.Context, wsURL string, maxWait time.Duration) (*Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait

	var conn *websocket.Conn
	err := backoff.Retry(func() error {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			log.Printf("[NET] Dial %s failed: %v", wsURL, err)
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	log.Printf("[NET] Connected to host at %s", wsURL)
	return NewClient(conn), nil
}

// NewClient wraps an established connection and starts its pumps.
func NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		calls: make(map[uint64]chan envelope),
	}
	go c.writePump()
	go c.readPump()
	return c
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Call(ctx context.Context, method string, payload []byte) ([]byte, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan envelope, 1)
	c.calls[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.calls, id)
		c.mu.Unlock()
	}()

	data, err := encodeEnvelope(envelope{ID: id, Kind: kindCall, Method: method, Payload: payload})
	if err != nil {
		return nil, err
	}
	select {
	case c.send <- data:
	case <-c.done:
		return nil, rpc.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return nil, &rpc.RemoteError{Method: method, Msg: reply.Error}
		}
		return reply.Payload, nil
	case <-c.done:
		return nil, rpc.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) Close() error {
	c.shutdown()
	return c.conn.Close()
}

func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[NET] Write to host failed: %v", err)
				c.shutdown()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump routes replies to waiting calls and notifications to handlers.
func (c *Client) readPump() {
	defer c.shutdown()
	ctx := context.Background()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("[NET] Connection to host lost: %v", err)
			}
			return
		}
		env, err := decodeEnvelope(data)
		if err != nil {
			log.Printf("[NET] Dropping undecodable frame from host: %v", err)
			continue
		}
		switch env.Kind {
		case kindReply:
			c.mu.Lock()
			ch, ok := c.calls[env.ID]
			c.mu.Unlock()
			if ok {
				ch <- env
			}
		case kindNotify:
			if _, err := c.Dispatch(ctx, env.Method, rpc.HostPeerID, env.Payload); err != nil {
				log.Printf("[NET] Notification %s not handled: %v", env.Method, err)
			}
		}
	}
}
