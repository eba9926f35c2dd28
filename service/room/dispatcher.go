package room

import (
	"hash/fnv"
	"sync"

	"SLProject/module/events"
)

// Relay forwards committed events beyond this node: to peer gateways
// (NATS) and to the activity journal (Kafka). Relays are best-effort and
// must never block the fanout path for long.
type Relay interface {
	Relay(evt events.Event)
}

// Dispatcher implements events.Sink. Events for the same channel are
// always handled by the same worker (sticky by channel hash), so
// per-channel delivery order matches publish order; per-channel sequence
// numbers are assigned here, in commit order, before handoff.
type Dispatcher struct {
	reg     *Registry
	workers []chan events.Event
	relays  []Relay

	seqMu sync.Mutex
	seq   map[string]int64

	closeOnce sync.Once
}

func NewDispatcher(reg *Registry, workers, queue int, relays ...Relay) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 256
	}
	d := &Dispatcher{
		reg:     reg,
		workers: make([]chan events.Event, workers),
		relays:  relays,
		seq:     make(map[string]int64),
	}
	for i := range d.workers {
		ch := make(chan events.Event, queue)
		d.workers[i] = ch
		go d.run(ch)
	}
	return d
}

// Publish accepts locally committed events. The engine calls this while
// still holding its entity locks, so seq assignment order equals commit
// order.
func (d *Dispatcher) Publish(evts ...events.Event) {
	for _, evt := range evts {
		d.seqMu.Lock()
		d.seq[evt.Channel]++
		evt.Seq = d.seq[evt.Channel]
		d.seqMu.Unlock()

		for _, r := range d.relays {
			r.Relay(evt)
		}
		d.enqueue(evt)
	}
}

// DeliverRemote feeds an event relayed from a peer gateway node. Its seq
// was assigned at the origin and is kept as-is.
func (d *Dispatcher) DeliverRemote(evt events.Event) {
	d.enqueue(evt)
}

func (d *Dispatcher) enqueue(evt events.Event) {
	d.workers[workerIndex(evt.Channel, len(d.workers))] <- evt
}

func (d *Dispatcher) run(ch chan events.Event) {
	for evt := range ch {
		payload := BuildEvent(evt).Marshal()
		for _, c := range d.reg.ListChannel(evt.Channel) {
			c.enqueue(payload)
		}
	}
}

func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		for _, ch := range d.workers {
			close(ch)
		}
	})
}

func workerIndex(channel string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(channel))
	return int(h.Sum32() % uint32(n))
}
