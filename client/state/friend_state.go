package state

import (
	"sync"

	"SLProject/module/events"
	usermodel "SLProject/module/user/model"
)

// FriendState mirrors the caller's friend graph surface: confirmed
// friends, pending inbound requests, and pending list invites.
type FriendState struct {
	mu sync.Mutex

	userID  string
	lastSeq int64 // highest applied seq on the user channel

	friends  []usermodel.PublicUser
	requests []events.FriendRequestPayload
	invites  []events.ListInvitePayload

	pendingAccepts map[string]events.FriendRequestPayload // requester id -> request moved optimistically
}

func NewFriendState(userID string) *FriendState {
	return &FriendState{userID: userID, pendingAccepts: map[string]events.FriendRequestPayload{}}
}

// Load replaces the mirror with an authoritative snapshot.
func (s *FriendState) Load(friends []usermodel.PublicUser, requests []usermodel.PublicUser, invites []events.ListInvitePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends = append([]usermodel.PublicUser(nil), friends...)
	s.requests = s.requests[:0]
	for _, r := range requests {
		s.requests = append(s.requests, events.FriendRequestPayload{RequesterID: r.ID, RequesterName: r.FullName})
	}
	s.invites = append([]events.ListInvitePayload(nil), invites...)
	s.lastSeq = 0
	s.pendingAccepts = map[string]events.FriendRequestPayload{}
}

func (s *FriendState) Friends() []usermodel.PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]usermodel.PublicUser(nil), s.friends...)
}

func (s *FriendState) Requests() []events.FriendRequestPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.FriendRequestPayload(nil), s.requests...)
}

func (s *FriendState) Invites() []events.ListInvitePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.ListInvitePayload(nil), s.invites...)
}

// OptimisticAccept moves a pending request into friends before the
// server confirms. Returns false when no such request is pending.
func (s *FriendState) OptimisticAccept(requesterID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.requests {
		if r.RequesterID == requesterID {
			s.pendingAccepts[requesterID] = r
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			s.friends = append(s.friends, usermodel.PublicUser{ID: r.RequesterID, FullName: r.RequesterName})
			return true
		}
	}
	return false
}

// ConfirmAccept drops the pending marker once the request succeeded.
func (s *FriendState) ConfirmAccept(requesterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingAccepts, requesterID)
}

// RollbackAccept undoes the optimistic move after the request failed.
func (s *FriendState) RollbackAccept(requesterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.pendingAccepts[requesterID]
	if !ok {
		return
	}
	delete(s.pendingAccepts, requesterID)
	for i, f := range s.friends {
		if f.ID == requesterID {
			s.friends = append(s.friends[:i], s.friends[i+1:]...)
			break
		}
	}
	s.requests = append(s.requests, r)
}

// ConsumeInvite removes an invite after accept or revoke.
func (s *FriendState) ConsumeInvite(listID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.invites {
		if inv.ListID == listID {
			s.invites = append(s.invites[:i], s.invites[i+1:]...)
			return
		}
	}
}

// Apply folds one confirmed user-channel event into the mirror.
// Duplicate delivery is a no-op: seq never regresses and entries
// dedupe on their ids.
func (s *FriendState) Apply(evt events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.Channel != events.UserChannel(s.userID) {
		return nil
	}
	if evt.Seq != 0 {
		if evt.Seq <= s.lastSeq {
			return nil
		}
		s.lastSeq = evt.Seq
	}

	switch evt.Name {
	case events.FriendRequestReceived:
		p, err := payloadAs[events.FriendRequestPayload](evt.Payload)
		if err != nil {
			return err
		}
		for _, r := range s.requests {
			if r.RequesterID == p.RequesterID {
				return nil
			}
		}
		for _, f := range s.friends {
			if f.ID == p.RequesterID {
				return nil
			}
		}
		s.requests = append(s.requests, *p)
	case events.ListInviteReceived:
		p, err := payloadAs[events.ListInvitePayload](evt.Payload)
		if err != nil {
			return err
		}
		for _, inv := range s.invites {
			if inv.ListID == p.ListID {
				return nil
			}
		}
		s.invites = append(s.invites, *p)
	}
	return nil
}
