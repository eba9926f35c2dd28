package natsx

import "golang.org/x/net/context"

// Message is the transport-agnostic message shape handlers receive.
type Message struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) error

// Middleware wraps handlers (dedupe, logging, metrics).
type Middleware func(Handler) Handler

// Chain applies middlewares outermost-first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
