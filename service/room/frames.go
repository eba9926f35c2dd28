package room

import (
	"encoding/json"
	"fmt"
	"time"

	"SLProject/module/events"
)

// Client frame types.
const (
	FrameJoin  = "join"
	FrameLeave = "leave"
	FramePing  = "ping"
)

// Server frame types.
const (
	FrameJoined = "joined"
	FrameDenied = "denied"
	FrameLeft   = "left"
	FrameEvent  = "event"
	FramePong   = "pong"
)

// ClientFrame is what a subscriber sends over the socket.
type ClientFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}

// ServerFrame is what the gateway sends back. Event frames carry the
// delta; denied frames carry the reason.
type ServerFrame struct {
	Type    string        `json:"type"`
	Channel string        `json:"channel,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Event   *events.Event `json:"event,omitempty"`
	Ts      int64         `json:"ts"`
}

func ParseClientFrame(raw []byte) (*ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	switch f.Type {
	case FrameJoin, FrameLeave:
		if f.Channel == "" {
			return nil, fmt.Errorf("frame type %q requires a channel", f.Type)
		}
	case FramePing:
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return &f, nil
}

func BuildJoined(channel string) *ServerFrame {
	return &ServerFrame{Type: FrameJoined, Channel: channel, Ts: time.Now().UnixMilli()}
}

func BuildDenied(channel, reason string) *ServerFrame {
	return &ServerFrame{Type: FrameDenied, Channel: channel, Reason: reason, Ts: time.Now().UnixMilli()}
}

func BuildLeft(channel string) *ServerFrame {
	return &ServerFrame{Type: FrameLeft, Channel: channel, Ts: time.Now().UnixMilli()}
}

func BuildPong() *ServerFrame {
	return &ServerFrame{Type: FramePong, Ts: time.Now().UnixMilli()}
}

func BuildEvent(evt events.Event) *ServerFrame {
	return &ServerFrame{Type: FrameEvent, Channel: evt.Channel, Event: &evt, Ts: time.Now().UnixMilli()}
}

func (f *ServerFrame) Marshal() []byte {
	b, _ := json.Marshal(f)
	return b
}
