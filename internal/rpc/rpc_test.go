package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlersDispatch(t *testing.T) {
	var hs Handlers
	_, err := hs.Dispatch(context.Background(), "missing", "p", nil)
	assert.ErrorIs(t, err, ErrNoHandler)

	hs.Subscribe("echo", func(_ context.Context, from string, payload []byte) ([]byte, error) {
		return append([]byte(from+":"), payload...), nil
	})
	out, err := hs.Dispatch(context.Background(), "echo", "p1", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "p1:hi", string(out))
}

func TestSubmitReplyRoundTrip(t *testing.T) {
	data, err := EncodeReply(SubmitReply{Accepted: false, Reason: "stale"})
	require.NoError(t, err)
	r, err := DecodeReply(data)
	require.NoError(t, err)
	assert.False(t, r.Accepted)
	assert.Equal(t, "stale", r.Reason)

	_, err = DecodeReply([]byte("{"))
	assert.Error(t, err)
}

func TestLocalCallReachesHost(t *testing.T) {
	n := NewNetwork()
	n.Host().Subscribe(MethodSubmit, func(_ context.Context, from string, payload []byte) ([]byte, error) {
		if string(payload) == "bad" {
			return nil, errors.New("nope")
		}
		return []byte(from), nil
	})
	p := n.Join("alice")

	out, err := p.Call(context.Background(), MethodSubmit, []byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "alice", string(out))

	_, err = p.Call(context.Background(), MethodSubmit, []byte("bad"))
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, MethodSubmit, remote.Method)

	p.SetDown(true)
	_, err = p.Call(context.Background(), MethodSubmit, []byte("ok"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLocalBroadcastSkipsDownPeers(t *testing.T) {
	n := NewNetwork()
	var got []string
	for _, id := range []string{"carol", "alice", "bob"} {
		id := id
		p := n.Join(id)
		p.Subscribe(MethodApply, func(_ context.Context, from string, payload []byte) ([]byte, error) {
			assert.Equal(t, HostPeerID, from)
			got = append(got, id+"="+string(payload))
			return nil, nil
		})
	}
	n.Join("bob").SetDown(true)

	require.NoError(t, n.Host().Broadcast(context.Background(), MethodApply, []byte("x")))
	assert.Equal(t, []string{"alice=x", "carol=x"}, got)

	n.Leave("carol")
	got = nil
	err := n.Host().Broadcast(context.Background(), MethodApply, []byte("y"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"alice=y"}, got)
}

func TestLocalBroadcastReportsHandlerErrors(t *testing.T) {
	n := NewNetwork()
	n.Join("alice")
	err := n.Host().Broadcast(context.Background(), MethodApply, nil)
	assert.ErrorIs(t, err, ErrNoHandler)
}
