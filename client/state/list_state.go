// Package state holds the client-side mirrors of server state. Each
// store merges locally-initiated optimistic edits with the confirmed
// deltas arriving over the socket, so duplicate delivery and late
// confirmations never duplicate or lose an entry.
package state

import (
	"sync"

	"SLProject/module/events"
	listmodel "SLProject/module/list/model"
	"SLProject/tools/decode"
	"SLProject/tools/errs"
)

// ListState mirrors the one list the user currently has open: its
// members, its items, and any optimistic edits awaiting confirmation.
// Loading a snapshot resets the mirror; events mutate it in place.
type ListState struct {
	mu sync.Mutex

	userID   string
	listID   string
	listName string
	members  []string

	order []string                  // item ids, insertion order
	items map[string]listmodel.Item // by id

	lastSeq int64 // highest applied seq on the selected list channel

	pendingToggles map[string]bool           // item id -> completed value before the optimistic flip
	pendingAdds    map[string]listmodel.Item // temp id -> optimistic item
}

func NewListState(userID string) *ListState {
	return &ListState{
		userID:         userID,
		items:          map[string]listmodel.Item{},
		pendingToggles: map[string]bool{},
		pendingAdds:    map[string]listmodel.Item{},
	}
}

// Load replaces the mirror with an authoritative snapshot, dropping any
// optimistic state carried over from a previous selection.
func (s *ListState) Load(list listmodel.List, items []listmodel.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listID = list.ID
	s.listName = list.Name
	s.members = append([]string(nil), list.Members...)
	s.order = s.order[:0]
	s.items = make(map[string]listmodel.Item, len(items))
	for _, it := range items {
		s.order = append(s.order, it.ID)
		s.items[it.ID] = it
	}
	s.lastSeq = 0
	s.pendingToggles = map[string]bool{}
	s.pendingAdds = map[string]listmodel.Item{}
}

// Clear drops the selection entirely (identity change, removal, logout).
func (s *ListState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *ListState) reset() {
	s.listID = ""
	s.listName = ""
	s.members = nil
	s.order = s.order[:0]
	s.items = map[string]listmodel.Item{}
	s.lastSeq = 0
	s.pendingToggles = map[string]bool{}
	s.pendingAdds = map[string]listmodel.Item{}
}

// Selected returns the id of the list currently mirrored, "" when none.
func (s *ListState) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listID
}

func (s *ListState) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.members...)
}

// Items returns the mirrored items in insertion order.
func (s *ListState) Items() []listmodel.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]listmodel.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *ListState) Item(id string) (listmodel.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	return it, ok
}

// OptimisticToggle flips an item's completed flag locally before the
// server confirms. The prior value is kept so a failed request can roll
// back. Returns false when the item is unknown.
func (s *ListState) OptimisticToggle(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return false
	}
	if _, already := s.pendingToggles[itemID]; !already {
		s.pendingToggles[itemID] = it.Completed
	}
	it.Completed = !it.Completed
	s.items[itemID] = it
	return true
}

// RollbackToggle restores the pre-optimistic value after the mutating
// request failed.
func (s *ListState) RollbackToggle(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior, ok := s.pendingToggles[itemID]
	if !ok {
		return
	}
	delete(s.pendingToggles, itemID)
	if it, exists := s.items[itemID]; exists {
		it.Completed = prior
		s.items[itemID] = it
	}
}

// OptimisticAdd inserts a locally-created item under a temporary id.
// The real id is only known once the server responds.
func (s *ListState) OptimisticAdd(tempID, content string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := listmodel.Item{ID: tempID, ListID: s.listID, Content: content, Metadata: metadata}
	s.pendingAdds[tempID] = it
	s.order = append(s.order, tempID)
	s.items[tempID] = it
}

// ConfirmAdd swaps the temporary entry for the server-assigned item.
// The itemAdded event that follows dedupes on the confirmed id.
func (s *ListState) ConfirmAdd(tempID string, confirmed listmodel.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pendingAdds[tempID]; !ok {
		return
	}
	delete(s.pendingAdds, tempID)
	delete(s.items, tempID)
	for i, id := range s.order {
		if id == tempID {
			s.order[i] = confirmed.ID
			break
		}
	}
	s.items[confirmed.ID] = confirmed
}

// RollbackAdd removes the optimistic entry after the request failed.
func (s *ListState) RollbackAdd(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pendingAdds[tempID]; !ok {
		return
	}
	delete(s.pendingAdds, tempID)
	delete(s.items, tempID)
	s.order = removeID(s.order, tempID)
}

// Apply folds one confirmed event into the mirror. Application is
// idempotent: duplicate delivery (same or lower seq, or an already
// present entity id) leaves the state unchanged.
func (s *ListState) Apply(evt events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listID == "" || evt.Channel != events.ListChannel(s.listID) {
		return nil
	}
	if evt.Seq != 0 {
		if evt.Seq <= s.lastSeq {
			return nil
		}
		s.lastSeq = evt.Seq
	}

	switch evt.Name {
	case events.ItemAdded:
		p, err := payloadAs[events.ItemPayload](evt.Payload)
		if err != nil {
			return err
		}
		if _, exists := s.items[p.Item.ID]; exists {
			return nil
		}
		s.order = append(s.order, p.Item.ID)
		s.items[p.Item.ID] = p.Item
	case events.ItemUpdated:
		p, err := payloadAs[events.ItemPayload](evt.Payload)
		if err != nil {
			return err
		}
		delete(s.pendingToggles, p.Item.ID)
		if _, exists := s.items[p.Item.ID]; !exists {
			s.order = append(s.order, p.Item.ID)
		}
		s.items[p.Item.ID] = p.Item
	case events.MemberRemoved:
		p, err := payloadAs[events.MemberRemovedPayload](evt.Payload)
		if err != nil {
			return err
		}
		if p.MemberID == s.userID {
			s.reset()
			return nil
		}
		s.members = removeID(s.members, p.MemberID)
	case events.MemberInvited:
		// display-only; membership changes arrive when the invite is accepted
	}
	return nil
}

// payloadAs recovers a typed payload. Over the wire the payload decodes
// to a generic map; in-process it may already be the typed struct.
func payloadAs[T any](p any) (*T, error) {
	switch v := p.(type) {
	case T:
		return &v, nil
	case *T:
		return v, nil
	case map[string]any:
		out, err := decode.DecodeMap[T](v)
		if err != nil {
			return nil, errs.WrapMsg(err, "decode event payload")
		}
		return out, nil
	default:
		return nil, errs.ErrInvalidArgument.WrapMsg("unexpected payload shape")
	}
}

func removeID(ss []string, id string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
