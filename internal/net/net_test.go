package net

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SyncBoard/internal/action"
	"SyncBoard/internal/manager"
	"SyncBoard/internal/rpc"
	"SyncBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func stroke() state.Shape {
	return state.Shape{
		Kind:      state.KindFreehand,
		Points:    []state.Point{{X: 1, Y: 1}, {X: 2, Y: 3}, {X: 5, Y: 8}},
		Color:     0xFF112233,
		Thickness: 3,
	}
}

// startHost serves a host manager over an httptest server and returns its
// "ip:port".
func startHost(t *testing.T) (*HostServer, *manager.Host, string, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := NewHostServer()
	h := manager.NewHost(manager.Config{UserID: "host"}, srv)
	go h.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, h, strings.TrimPrefix(ts.URL, "http://"), ctx
}

func dial(t *testing.T, ctx context.Context, addr, id string) *Client {
	t.Helper()
	c, err := Dial(ctx, HostURL(addr, id), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWebsocketSession(t *testing.T) {
	srv, h, addr, ctx := startHost(t)

	hostShape, err := h.RequestCreate(ctx, stroke())
	require.NoError(t, err)

	client := dial(t, ctx, addr, "alice")
	alice := manager.NewParticipant(manager.Config{UserID: "alice"}, client)
	require.NoError(t, alice.Sync(ctx))
	go alice.Run(ctx)
	assert.Eventually(t, func() bool { return srv.Peers.Len() == 1 }, waitFor, tick)

	_, ok := alice.CanvasState().Get(hostShape.ShapeID)
	assert.True(t, ok)

	a, err := alice.RequestCreate(ctx, stroke())
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		st, ok := h.CanvasState().Get(a.ShapeID)
		return ok && st.Equal(a.NewState) && alice.CanUndo()
	}, waitFor, tick)

	_, err = h.RequestDelete(ctx, hostShape.ShapeID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		st, ok := alice.CanvasState().Get(hostShape.ShapeID)
		return ok && st.Deleted()
	}, waitFor, tick)

	require.NoError(t, alice.RequestUndo(ctx))
	assert.Eventually(t, func() bool {
		st, ok := h.CanvasState().Get(a.ShapeID)
		return ok && st.Deleted()
	}, waitFor, tick)
}

func TestWebsocketConflictReachesSender(t *testing.T) {
	_, h, addr, ctx := startHost(t)
	created, err := h.RequestCreate(ctx, stroke())
	require.NoError(t, err)

	edit := *created.NewState.Shape()
	edit.Color = 0xFFFFFFFF
	_, err = h.RequestModify(ctx, edit)
	require.NoError(t, err)

	// Built against the original, which the host has already replaced.
	f := action.NewFactory(nil)
	stale := state.NewCanvasState()
	require.NoError(t, stale.ApplyState(created.ShapeID, created.NewState))
	edit.Color = 0xFF000000
	edit.Thickness = 7
	a, err := f.CreateModify(stale, created.ShapeID, edit, "bob")
	require.NoError(t, err)
	payload, err := action.Encode(a)
	require.NoError(t, err)

	client := dial(t, ctx, addr, "bob")
	raw, err := client.Call(ctx, rpc.MethodSubmit, payload)
	require.NoError(t, err)
	reply, err := rpc.DecodeReply(raw)
	require.NoError(t, err)
	assert.False(t, reply.Accepted)
	assert.NotEmpty(t, reply.Reason)
}

func TestClientCallUnknownMethod(t *testing.T) {
	_, _, addr, ctx := startHost(t)
	client := dial(t, ctx, addr, "carol")

	_, err := client.Call(ctx, "canvas.nope", nil)
	var remote *rpc.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Msg, rpc.ErrNoHandler.Error())
}

func TestClientCloseFailsCalls(t *testing.T) {
	_, _, addr, ctx := startHost(t)
	client := dial(t, ctx, addr, "dave")
	require.NoError(t, client.Close())

	<-client.Done()
	_, err := client.Call(ctx, rpc.MethodFullState, nil)
	assert.ErrorIs(t, err, rpc.ErrClosed)
}

func TestReconnectReplacesPeer(t *testing.T) {
	srv, _, addr, ctx := startHost(t)
	first := dial(t, ctx, addr, "erin")
	require.Eventually(t, func() bool { return srv.Peers.Len() == 1 }, waitFor, tick)

	dial(t, ctx, addr, "erin")
	select {
	case <-first.Done():
	case <-time.After(waitFor):
		t.Fatal("old connection was not closed")
	}
	assert.Equal(t, 1, srv.Peers.Len())
}

func TestDialGivesUp(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	_, err := Dial(context.Background(), HostURL(addr, "x"), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestExtraRoutes(t *testing.T) {
	srv := NewHostServer()
	srv.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{}")
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "{}", string(body))

	resp, err = http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShareLink(t *testing.T) {
	link := ShareLink("192.168.1.20", 8888)
	assert.Equal(t, "syncboard://192.168.1.20:8888", link)

	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"syncboard://192.168.1.20:8888", "192.168.1.20:8888", true},
		{"syncboard://10.0.0.1:9000/", "10.0.0.1:9000", true},
		{"localboard://10.0.0.1:9000", "", false},
		{"syncboard://10.0.0.1", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, ok := ParseShareLink(tt.link)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostURL(t *testing.T) {
	assert.Equal(t, "ws://10.0.0.1:8888/ws?peer=alice", HostURL("10.0.0.1:8888", "alice"))
	assert.Equal(t, "ws://10.0.0.1:8888/ws", HostURL("10.0.0.1:8888", ""))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := encodeEnvelope(envelope{ID: 7, Kind: kindCall, Method: rpc.MethodSubmit, Payload: []byte(`{"a":1}`)})
	require.NoError(t, err)
	env, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), env.ID)
	assert.Equal(t, kindCall, env.Kind)
	assert.Equal(t, `{"a":1}`, string(env.Payload))
}
