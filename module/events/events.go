// Package events defines the typed state-change deltas that flow from
// the membership engine through the fan-out dispatcher to subscribed
// clients. Payloads are the minimal delta a client needs to reconcile
// without a full re-fetch.
package events

import listmodel "SLProject/module/list/model"

// Event names.
const (
	ItemAdded             = "itemAdded"
	ItemUpdated           = "itemUpdated"
	MemberRemoved         = "memberRemoved"
	MemberInvited         = "memberInvited"
	ListInviteReceived    = "listInviteReceived"
	FriendRequestReceived = "friendRequestReceived"
)

// ListChannel is the broadcast channel for one list's members.
func ListChannel(listID string) string { return "list:" + listID }

// UserChannel is the per-user notification channel.
func UserChannel(userID string) string { return "user:" + userID }

// Event is one delta on one channel. Seq is assigned by the dispatcher,
// monotonically per channel, in commit order.
type Event struct {
	Channel string `json:"channel"`
	Name    string `json:"event"`
	Seq     int64  `json:"seq,omitempty"`
	Payload any    `json:"payload"`
}

type ItemPayload struct {
	ListID string         `json:"listId"`
	Item   listmodel.Item `json:"item"`
}

type MemberRemovedPayload struct {
	ListID    string `json:"listId"`
	MemberID  string `json:"memberId"`
	RemovedBy string `json:"removedBy"`
}

type MemberInvitedPayload struct {
	ListID      string `json:"listId"`
	InviteeID   string `json:"inviteeId"`
	InviteeName string `json:"inviteeName"`
}

type ListInvitePayload struct {
	ListID      string `json:"listId"`
	ListName    string `json:"listName"`
	InviterID   string `json:"inviterId"`
	InviterName string `json:"inviterName"`
}

type FriendRequestPayload struct {
	RequesterID   string `json:"requesterId"`
	RequesterName string `json:"requesterName"`
}

func NewItemAdded(listID string, item listmodel.Item) Event {
	return Event{Channel: ListChannel(listID), Name: ItemAdded, Payload: ItemPayload{ListID: listID, Item: item}}
}

func NewItemUpdated(listID string, item listmodel.Item) Event {
	return Event{Channel: ListChannel(listID), Name: ItemUpdated, Payload: ItemPayload{ListID: listID, Item: item}}
}

func NewMemberRemoved(listID, memberID, removedBy string) Event {
	return Event{Channel: ListChannel(listID), Name: MemberRemoved,
		Payload: MemberRemovedPayload{ListID: listID, MemberID: memberID, RemovedBy: removedBy}}
}

func NewMemberInvited(listID, inviteeID, inviteeName string) Event {
	return Event{Channel: ListChannel(listID), Name: MemberInvited,
		Payload: MemberInvitedPayload{ListID: listID, InviteeID: inviteeID, InviteeName: inviteeName}}
}

func NewListInviteReceived(inviteeID, listID, listName, inviterID, inviterName string) Event {
	return Event{Channel: UserChannel(inviteeID), Name: ListInviteReceived,
		Payload: ListInvitePayload{ListID: listID, ListName: listName, InviterID: inviterID, InviterName: inviterName}}
}

func NewFriendRequestReceived(toID, requesterID, requesterName string) Event {
	return Event{Channel: UserChannel(toID), Name: FriendRequestReceived,
		Payload: FriendRequestPayload{RequesterID: requesterID, RequesterName: requesterName}}
}

// Sink receives events for committed transactions. Publishing is
// best-effort and never fails the transaction that produced the events.
type Sink interface {
	Publish(evts ...Event)
}

// NopSink drops everything; used in tests and offline tools.
type NopSink struct{}

func (NopSink) Publish(...Event) {}
