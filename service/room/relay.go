package room

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	xctx "golang.org/x/net/context"

	"SLProject/logger"
	"SLProject/module/events"
	"SLProject/service/natsx"
)

const (
	relayBiz     = "room-events"
	relaySubject = "sl.room.events"
	originHeader = "X-Origin-Gateway"
)

// NatsRelay mirrors locally committed events to every peer gateway
// node. The subscription is a broadcast (no queue group): each node
// receives everything and delivers to its own sockets, skipping frames
// it originated itself.
type NatsRelay struct {
	prod *natsx.Producer
	gwID string
}

func NewNatsRelay(client *natsx.Client, gwID string) (*NatsRelay, error) {
	if err := client.RegisterRoute(natsx.Route{
		Biz:     relayBiz,
		Subject: relaySubject,
		Mode:    natsx.Core,
	}); err != nil {
		return nil, err
	}
	return &NatsRelay{prod: natsx.NewProducer(client), gwID: gwID}, nil
}

// Relay implements the dispatcher relay contract.
func (r *NatsRelay) Relay(evt events.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		logger.Errorf("[relay] marshal: %v", err)
		return
	}
	msgID := fmt.Sprintf("%s/%d", evt.Channel, evt.Seq)
	hdr := map[string]string{originHeader: r.gwID}
	if err := r.prod.PublishOnce(context.Background(), relayBiz, data, hdr, msgID); err != nil {
		logger.Warnf("[relay] publish channel=%s seq=%d err=%v", evt.Channel, evt.Seq, err)
	}
}

// ConsumeRelay subscribes this node to the peer event stream and feeds
// remote events into the local dispatcher. Duplicate frames (redelivery
// after reconnect) are dropped by the idempotency middleware.
func ConsumeRelay(client *natsx.Client, gwID string, disp *Dispatcher) error {
	idem := natsx.IdemMiddleware(natsx.NewMemIdem(5*time.Minute), 5*time.Minute)
	consumer := natsx.NewConsumer(client, idem)

	return consumer.Subscribe(relayBiz, func(_ xctx.Context, msg natsx.Message) error {
		if msg.Header[originHeader] == gwID {
			return nil // our own echo
		}
		var evt events.Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Warnf("[relay] bad event payload: %v", err)
			return nil
		}
		disp.DeliverRemote(evt)
		return nil
	})
}
