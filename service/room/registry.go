package room

import "sync"

// Registry indexes live connections and their channel subscriptions.
// Authorization happens before Subscribe; the registry itself is dumb.
type Registry struct {
	mu        sync.RWMutex
	byConn    map[string]*Client             // conn_id -> client
	byChannel map[string]map[string]*Client  // channel -> conn_id -> client
	channels  map[string]map[string]struct{} // conn_id -> channel set
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:    make(map[string]*Client),
		byChannel: make(map[string]map[string]*Client),
		channels:  make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[c.ConnID] = c
	r.channels[c.ConnID] = make(map[string]struct{})
}

// Remove drops the connection and all its subscriptions, returning the
// channels it was subscribed to.
func (r *Registry) Remove(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.channels[connID]
	out := make([]string, 0, len(subs))
	for ch := range subs {
		out = append(out, ch)
		if m := r.byChannel[ch]; m != nil {
			delete(m, connID)
			if len(m) == 0 {
				delete(r.byChannel, ch)
			}
		}
	}
	delete(r.channels, connID)
	delete(r.byConn, connID)
	return out
}

func (r *Registry) Subscribe(c *Client, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byChannel[channel]
	if m == nil {
		m = make(map[string]*Client)
		r.byChannel[channel] = m
	}
	m[c.ConnID] = c
	if set := r.channels[c.ConnID]; set != nil {
		set[channel] = struct{}{}
	}
}

func (r *Registry) Unsubscribe(connID, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.channels[connID]
	if set == nil {
		return false
	}
	if _, ok := set[channel]; !ok {
		return false
	}
	delete(set, channel)
	if m := r.byChannel[channel]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byChannel, channel)
		}
	}
	return true
}

// ListChannel returns the clients currently subscribed to channel.
func (r *Registry) ListChannel(channel string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byChannel[channel]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Subscribed(connID, channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.channels[connID]
	if set == nil {
		return false
	}
	_, ok := set[channel]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
