package scopeweb

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/cbegin/polysynth-go/internal/scope"
)

func startServer(t *testing.T) (*Server, net.Addr) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return s, ln.Addr()
}

func dial(t *testing.T, addr net.Addr) *websocket.Conn {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: addr.String(), Path: "/ws"}
	conn, _, err := (&websocket.Dialer{}).Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, s *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	s, addr := startServer(t)
	a := dial(t, addr)
	b := dial(t, addr)
	waitClients(t, s, 2)

	want := scope.Frame{RMS: 0.5, Start: 3, Period: 109, Trace: []float32{0, 0.5, -0.5}}
	require.NoError(t, s.Broadcast(want))

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)
		var got scope.Frame
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, want, got)
	}
}

func TestClientDisconnectIsForgotten(t *testing.T) {
	s, addr := startServer(t)
	conn := dial(t, addr)
	waitClients(t, s, 1)
	require.NoError(t, conn.Close())
	waitClients(t, s, 0)
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, addr := startServer(t)
	conn := dial(t, addr)
	waitClients(t, s, 1)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)
	assert.ErrorIs(t, s.Broadcast(scope.Frame{}), ErrClosed)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestViewerPageAndNotFound(t *testing.T) {
	_, addr := startServer(t)
	status, body, err := fasthttp.Get(nil, "http://"+addr.String()+"/")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(body), "new WebSocket")

	status, _, err = fasthttp.Get(nil, "http://"+addr.String()+"/nope")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusNotFound, status)
}

type constSource struct{ v uint8 }

func (c constSource) Snapshot(dst []uint8) {
	for i := range dst {
		dst[i] = c.v
	}
}

func TestPumpStreamsFrames(t *testing.T) {
	s, addr := startServer(t)
	conn := dial(t, addr)
	waitClients(t, s, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Pump(ctx, constSource{v: 192}, scope.NewExtractor(256, 16), 50) }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var f scope.Frame
	require.NoError(t, json.Unmarshal(msg, &f))
	assert.InDelta(t, 0.5, f.RMS, 1e-9)
	assert.Len(t, f.Trace, 16)
}
