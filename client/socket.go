// Package client is the programmatic consumer of the realtime gateway:
// a websocket session that keeps exactly one list channel subscribed,
// plus the state mirrors under client/state that events fold into.
package client

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SLProject/logger"
	"SLProject/module/events"
	"SLProject/service/room"
	"SLProject/tools/errs"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	pingEvery    = 30 * time.Second
)

// EventHandler receives every event frame routed to this connection.
type EventHandler func(evt events.Event)

// DeniedHandler receives join denials.
type DeniedHandler func(channel, reason string)

// Socket is one authenticated gateway connection. The gateway
// auto-subscribes the user's own channel at handshake; the socket adds
// at most one list channel on top, swapped atomically on selection
// change. Changing identity means a new token, so it tears the
// connection down and dials again.
type Socket struct {
	endpoint string

	mu       sync.Mutex
	token    string
	conn     *websocket.Conn
	selected string // list channel currently joined, "" when none
	closed   bool
	done     chan struct{}

	onEvent  EventHandler
	onDenied DeniedHandler
}

func NewSocket(endpoint string, onEvent EventHandler, onDenied DeniedHandler) *Socket {
	return &Socket{endpoint: endpoint, onEvent: onEvent, onDenied: onDenied}
}

// Connect dials the gateway with the given token, replacing any live
// connection. A previously selected list channel is re-joined so the
// subscription survives reconnects under the same identity.
func (s *Socket) Connect(ctx context.Context, token string) error {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return errs.WrapMsg(err, "bad endpoint", "endpoint", s.endpoint)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return errs.WrapMsg(err, "dial gateway")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return errs.New("socket closed")
	}
	s.teardownLocked()
	s.token = token
	s.conn = conn
	s.done = make(chan struct{})
	rejoin := s.selected
	done := s.done
	s.mu.Unlock()

	go s.readLoop(conn, done)
	go s.pingLoop(conn, done)

	if rejoin != "" {
		return s.send(room.ClientFrame{Type: room.FrameJoin, Channel: rejoin})
	}
	return nil
}

// SelectList swaps the outstanding list subscription to listID. The
// previous channel is left first so at most one list channel is ever
// joined. Selecting the current list again is a no-op.
func (s *Socket) SelectList(listID string) error {
	channel := events.ListChannel(listID)
	s.mu.Lock()
	prev := s.selected
	if prev == channel {
		s.mu.Unlock()
		return nil
	}
	s.selected = channel
	s.mu.Unlock()

	if prev != "" {
		if err := s.send(room.ClientFrame{Type: room.FrameLeave, Channel: prev}); err != nil {
			return err
		}
	}
	return s.send(room.ClientFrame{Type: room.FrameJoin, Channel: channel})
}

// DeselectList leaves the current list channel, if any.
func (s *Socket) DeselectList() error {
	s.mu.Lock()
	prev := s.selected
	s.selected = ""
	s.mu.Unlock()
	if prev == "" {
		return nil
	}
	return s.send(room.ClientFrame{Type: room.FrameLeave, Channel: prev})
}

// Ping refreshes server-side presence.
func (s *Socket) Ping() error {
	return s.send(room.ClientFrame{Type: room.FramePing})
}

func (s *Socket) Close() {
	s.mu.Lock()
	s.closed = true
	s.teardownLocked()
	s.mu.Unlock()
}

// teardownLocked stops the loops of the current connection and closes
// it. Callers hold s.mu.
func (s *Socket) teardownLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Socket) send(f room.ClientFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errs.New("socket not connected")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(f); err != nil {
		return errs.WrapMsg(err, "send frame", "type", f.Type, "channel", f.Channel)
	}
	return nil
}

func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var frame room.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-done:
			default:
				logger.Warnf("[socket] read: %v", err)
			}
			return
		}
		switch frame.Type {
		case room.FrameEvent:
			if frame.Event != nil && s.onEvent != nil {
				s.onEvent(*frame.Event)
			}
		case room.FrameDenied:
			s.mu.Lock()
			if s.selected == frame.Channel {
				s.selected = ""
			}
			s.mu.Unlock()
			if s.onDenied != nil {
				s.onDenied(frame.Channel, frame.Reason)
			}
		case room.FrameJoined, room.FrameLeft, room.FramePong:
		}
	}
}

func (s *Socket) pingLoop(conn *websocket.Conn, done chan struct{}) {
	t := time.NewTicker(pingEvery)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			s.mu.Lock()
			live := s.conn == conn
			s.mu.Unlock()
			if !live {
				return
			}
			if err := s.Ping(); err != nil {
				return
			}
		}
	}
}
