package room

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"SLProject/logger"
	security "SLProject/middleware/security"
	"SLProject/service/storage"
	"SLProject/tools/errs"
	"SLProject/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	readDeadline  = 75 * time.Second
	sendQueueSize = 256
	presenceTTL   = 90 * time.Second
)

// Server ties the socket surface together: upgrade, authorize joins,
// route frames, track presence.
type Server struct {
	gwID     string
	gw       *Gateway
	reg      *Registry
	disp     *Dispatcher
	presence *storage.Presence
}

func NewServer(gwID string, gw *Gateway, reg *Registry, disp *Dispatcher, presence *storage.Presence) *Server {
	return &Server{gwID: gwID, gw: gw, reg: reg, disp: disp, presence: presence}
}

func (s *Server) Registry() *Registry     { return s.reg }
func (s *Server) Dispatcher() *Dispatcher { return s.disp }

// HandleWS upgrades an authenticated request and runs the read loop.
// The auth middleware has already verified the token (passed as ?token=
// on the handshake) and stashed the user id on the gin context.
func (s *Server) HandleWS(c *gin.Context) {
	userID := security.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "unauthenticated"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[room] upgrade error user=%s err=%v", userID, err)
		return
	}

	client := NewClient(ids.GenerateString(), userID, ws, sendQueueSize)
	s.reg.Add(client)
	go client.writePump()

	if s.presence != nil {
		if err := s.presence.Online(context.Background(), userID, s.gwID, presenceTTL); err != nil {
			logger.Warnf("[room] presence online user=%s err=%v", userID, err)
		}
	}

	// every socket listens on its own notification channel from the start
	s.reg.Subscribe(client, "user:"+userID)
	client.enqueue(BuildJoined("user:" + userID).Marshal())

	_ = ws.SetReadDeadline(time.Now().Add(readDeadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readDeadline))
	})

	s.readLoop(client)

	// teardown: the registry entry goes first so fanout stops seeing the
	// conn, then the writer is released, then presence expires early.
	s.reg.Remove(client.ConnID)
	client.shutdown()
	if s.presence != nil {
		_ = s.presence.Offline(context.Background(), userID)
	}
	logger.Infof("[room] closed connId=%s user=%s", client.ConnID, userID)
}

func (s *Server) readLoop(client *Client) {
	ws := client.WS
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[room] peer closed connId=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[room] read timeout connId=%s", client.ConnID)
			} else {
				logger.Infof("[room] read err connId=%s err=%v", client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(readDeadline))

		frame, perr := ParseClientFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			log.Printf("[room] bad frame connId=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		s.handleFrame(client, frame)
	}
}

func (s *Server) handleFrame(client *Client, frame *ClientFrame) {
	switch frame.Type {
	case FrameJoin:
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := s.gw.Authorize(ctx, client.UserID, frame.Channel)
		cancel()
		if err != nil {
			client.enqueue(BuildDenied(frame.Channel, deniedReason(err)).Marshal())
			return
		}
		s.reg.Subscribe(client, frame.Channel)
		client.enqueue(BuildJoined(frame.Channel).Marshal())

	case FrameLeave:
		if s.reg.Unsubscribe(client.ConnID, frame.Channel) {
			client.enqueue(BuildLeft(frame.Channel).Marshal())
		}

	case FramePing:
		if s.presence != nil {
			_ = s.presence.Refresh(context.Background(), client.UserID, presenceTTL)
		}
		client.enqueue(BuildPong().Marshal())
	}
}

// deniedReason keeps internals out of the denial frame: the coded
// message goes to the client, wrapped detail stays in the logs.
func deniedReason(err error) string {
	var ce *errs.CodeError
	if stderrors.As(err, &ce) {
		if ce.Detail != "" {
			return ce.Detail
		}
		return ce.Msg
	}
	return "join denied"
}
