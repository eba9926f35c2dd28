package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SLProject/module/events"
	listmodel "SLProject/module/list/model"
	"SLProject/service/room"
)

// fakeGateway upgrades connections and records every client frame.
type fakeGateway struct {
	srv    *httptest.Server
	conns  chan *websocket.Conn
	frames chan room.ClientFrame
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{
		conns:  make(chan *websocket.Conn, 4),
		frames: make(chan room.ClientFrame, 16),
	}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		g.conns <- conn
		go func() {
			for {
				var f room.ClientFrame
				if err := conn.ReadJSON(&f); err != nil {
					return
				}
				g.frames <- f
			}
		}()
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) wsURL() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *fakeGateway) nextFrame(t *testing.T) room.ClientFrame {
	t.Helper()
	select {
	case f := <-g.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame from client")
		return room.ClientFrame{}
	}
}

func (g *fakeGateway) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-g.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func TestSelectListSwapsSubscription(t *testing.T) {
	g := newFakeGateway(t)
	s := NewSocket(g.wsURL(), nil, nil)
	defer s.Close()
	require.NoError(t, s.Connect(context.Background(), "tok"))
	g.nextConn(t)

	require.NoError(t, s.SelectList("l-1"))
	f := g.nextFrame(t)
	assert.Equal(t, room.FrameJoin, f.Type)
	assert.Equal(t, "list:l-1", f.Channel)

	require.NoError(t, s.SelectList("l-2"))
	f = g.nextFrame(t)
	assert.Equal(t, room.FrameLeave, f.Type)
	assert.Equal(t, "list:l-1", f.Channel)
	f = g.nextFrame(t)
	assert.Equal(t, room.FrameJoin, f.Type)
	assert.Equal(t, "list:l-2", f.Channel)

	// re-selecting the current list sends nothing; the next frame on
	// the wire is the ping we send right after
	require.NoError(t, s.SelectList("l-2"))
	require.NoError(t, s.Ping())
	f = g.nextFrame(t)
	assert.Equal(t, room.FramePing, f.Type)
}

func TestDeselectListLeaves(t *testing.T) {
	g := newFakeGateway(t)
	s := NewSocket(g.wsURL(), nil, nil)
	defer s.Close()
	require.NoError(t, s.Connect(context.Background(), "tok"))
	g.nextConn(t)

	require.NoError(t, s.SelectList("l-1"))
	g.nextFrame(t)

	require.NoError(t, s.DeselectList())
	f := g.nextFrame(t)
	assert.Equal(t, room.FrameLeave, f.Type)
	assert.Equal(t, "list:l-1", f.Channel)

	// deselecting twice is a no-op
	require.NoError(t, s.DeselectList())
	require.NoError(t, s.Ping())
	f = g.nextFrame(t)
	assert.Equal(t, room.FramePing, f.Type)
}

func TestEventFramesRouted(t *testing.T) {
	g := newFakeGateway(t)
	got := make(chan events.Event, 1)
	s := NewSocket(g.wsURL(), func(evt events.Event) { got <- evt }, nil)
	defer s.Close()
	require.NoError(t, s.Connect(context.Background(), "tok"))
	conn := g.nextConn(t)

	evt := events.NewItemAdded("l-1", listmodel.Item{ID: "i-1", ListID: "l-1", Content: "milk"})
	evt.Seq = 7
	require.NoError(t, conn.WriteJSON(room.BuildEvent(evt)))

	select {
	case e := <-got:
		assert.Equal(t, events.ItemAdded, e.Name)
		assert.Equal(t, int64(7), e.Seq)
		assert.Equal(t, "list:l-1", e.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("event not routed")
	}
}

func TestDeniedClearsSelection(t *testing.T) {
	g := newFakeGateway(t)
	denied := make(chan string, 1)
	s := NewSocket(g.wsURL(), nil, func(channel, reason string) { denied <- reason })
	defer s.Close()
	require.NoError(t, s.Connect(context.Background(), "tok"))
	conn := g.nextConn(t)

	require.NoError(t, s.SelectList("l-1"))
	g.nextFrame(t)
	require.NoError(t, conn.WriteJSON(room.BuildDenied("list:l-1", "not a member")))

	select {
	case reason := <-denied:
		assert.Equal(t, "not a member", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("denial not routed")
	}

	// the denied channel is no longer considered selected, so a fresh
	// select of the same list joins again
	require.NoError(t, s.SelectList("l-1"))
	f := g.nextFrame(t)
	assert.Equal(t, room.FrameJoin, f.Type)
	assert.Equal(t, "list:l-1", f.Channel)
}

func TestReconnectRejoinsSelectedList(t *testing.T) {
	g := newFakeGateway(t)
	s := NewSocket(g.wsURL(), nil, nil)
	defer s.Close()
	require.NoError(t, s.Connect(context.Background(), "tok-1"))
	g.nextConn(t)

	require.NoError(t, s.SelectList("l-1"))
	g.nextFrame(t)

	// identity change: new token, new connection, same selection
	require.NoError(t, s.Connect(context.Background(), "tok-2"))
	g.nextConn(t)
	f := g.nextFrame(t)
	assert.Equal(t, room.FrameJoin, f.Type)
	assert.Equal(t, "list:l-1", f.Channel)
}
