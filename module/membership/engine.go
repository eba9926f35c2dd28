// Package membership is the transaction engine: every multi-entity
// mutation of the friend graph, list membership, and pending
// invitations goes through here as one atomic write batch. No other
// component may perform multi-entity writes.
package membership

import (
	"context"
	"time"

	"SLProject/module/events"
	"SLProject/store"
	"SLProject/tools/errs"
	"SLProject/tools/ids"
)

type Engine struct {
	store store.Store
	sink  events.Sink
	locks *KeyLock

	now   func() time.Time
	newID func() string
}

func NewEngine(s store.Store, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Engine{
		store: s,
		sink:  sink,
		locks: NewKeyLock(),
		now:   time.Now,
		newID: ids.GenerateString,
	}
}

func userKey(id string) string { return "user/" + id }
func listKey(id string) string { return "list/" + id }
func itemKey(id string) string { return "item/" + id }

// publish hands committed deltas to the sink while the entity locks are
// still held, so per-channel delivery order matches commit order.
func (e *Engine) publish(evts ...events.Event) {
	e.sink.Publish(evts...)
}

// ===== friend graph =====

// SendFriendRequest adds from to to's pending inbound requests.
// Re-sending while a request is already pending is a no-op (the pending
// set never holds duplicates); the notification is re-emitted and the
// receiving client dedupes it.
func (e *Engine) SendFriendRequest(ctx context.Context, from, to string) error {
	if from == to {
		return errs.ErrInvalidArgument.WrapMsg("cannot send a friend request to yourself")
	}
	unlock := e.locks.LockAll(userKey(from), userKey(to))
	defer unlock()

	sender, err := store.GetUser(ctx, e.store, from)
	if err != nil {
		return err
	}
	target, err := store.GetUser(ctx, e.store, to)
	if err != nil {
		return err
	}
	if target.HasFriend(from) {
		return errs.ErrConflict.WrapMsg("already friends", "from", from, "to", to)
	}
	if contains(target.Blocked, from) || contains(sender.Blocked, to) {
		return errs.ErrForbidden.WrapMsg("blocked", "from", from, "to", to)
	}

	if !target.HasFriendRequestFrom(from) {
		op := store.Update(store.KindUser, to,
			map[string]any{
				"friendRequests": append(append([]string{}, target.FriendRequests...), from),
				"updatedAt":      e.now(),
			},
			map[string]any{"friendRequests": target.FriendRequests},
		)
		if err := e.store.WriteAtomic(ctx, []store.WriteOp{op}); err != nil {
			return err
		}
	}

	e.publish(events.NewFriendRequestReceived(to, from, sender.FullName))
	return nil
}

// AcceptFriendRequest converts a pending request into a symmetric
// friend edge.
func (e *Engine) AcceptFriendRequest(ctx context.Context, user, requester string) error {
	unlock := e.locks.LockAll(userKey(user), userKey(requester))
	defer unlock()

	u, err := store.GetUser(ctx, e.store, user)
	if err != nil {
		return err
	}
	if !u.HasFriendRequestFrom(requester) {
		return errs.ErrNotFound.WrapMsg("friend request not found", "user", user, "requester", requester)
	}
	r, err := store.GetUser(ctx, e.store, requester)
	if err != nil {
		return err
	}

	ops := []store.WriteOp{
		store.Update(store.KindUser, user,
			map[string]any{
				"friendRequests": removeStr(u.FriendRequests, requester),
				"friends":        appendUnique(u.Friends, requester),
				"updatedAt":      e.now(),
			},
			map[string]any{"friendRequests": u.FriendRequests, "friends": u.Friends},
		),
		store.Update(store.KindUser, requester,
			map[string]any{
				"friends":   appendUnique(r.Friends, user),
				"updatedAt": e.now(),
			},
			map[string]any{"friends": r.Friends},
		),
	}
	return e.store.WriteAtomic(ctx, ops)
}

// RejectFriendRequest drops a pending request without creating an edge.
// The decline transition the source never modeled: a plain removal, no
// fan-out event, the requester learns nothing.
func (e *Engine) RejectFriendRequest(ctx context.Context, user, requester string) error {
	unlock := e.locks.LockAll(userKey(user))
	defer unlock()

	u, err := store.GetUser(ctx, e.store, user)
	if err != nil {
		return err
	}
	if !u.HasFriendRequestFrom(requester) {
		return errs.ErrNotFound.WrapMsg("friend request not found", "user", user, "requester", requester)
	}
	op := store.Update(store.KindUser, user,
		map[string]any{
			"friendRequests": removeStr(u.FriendRequests, requester),
			"updatedAt":      e.now(),
		},
		map[string]any{"friendRequests": u.FriendRequests},
	)
	return e.store.WriteAtomic(ctx, []store.WriteOp{op})
}

// RemoveFriend removes the edge in both directions.
func (e *Engine) RemoveFriend(ctx context.Context, user, target string) error {
	unlock := e.locks.LockAll(userKey(user), userKey(target))
	defer unlock()

	u, err := store.GetUser(ctx, e.store, user)
	if err != nil {
		return err
	}
	if !u.HasFriend(target) {
		return errs.ErrNotFound.WrapMsg("friend not found", "user", user, "target", target)
	}
	t, err := store.GetUser(ctx, e.store, target)
	if err != nil {
		return err
	}

	ops := []store.WriteOp{
		store.Update(store.KindUser, user,
			map[string]any{"friends": removeStr(u.Friends, target), "updatedAt": e.now()},
			map[string]any{"friends": u.Friends},
		),
		store.Update(store.KindUser, target,
			map[string]any{"friends": removeStr(t.Friends, user), "updatedAt": e.now()},
			map[string]any{"friends": t.Friends},
		),
	}
	return e.store.WriteAtomic(ctx, ops)
}

// BlockUser removes any friend edge both ways and records the block.
func (e *Engine) BlockUser(ctx context.Context, user, target string) error {
	if user == target {
		return errs.ErrInvalidArgument.WrapMsg("cannot block yourself")
	}
	unlock := e.locks.LockAll(userKey(user), userKey(target))
	defer unlock()

	u, err := store.GetUser(ctx, e.store, user)
	if err != nil {
		return err
	}
	t, err := store.GetUser(ctx, e.store, target)
	if err != nil {
		return err
	}

	ops := []store.WriteOp{
		store.Update(store.KindUser, user,
			map[string]any{
				"friends":      removeStr(u.Friends, target),
				"blockedUsers": appendUnique(u.Blocked, target),
				"updatedAt":    e.now(),
			},
			map[string]any{"friends": u.Friends, "blockedUsers": u.Blocked},
		),
		store.Update(store.KindUser, target,
			map[string]any{"friends": removeStr(t.Friends, user), "updatedAt": e.now()},
			map[string]any{"friends": t.Friends},
		),
	}
	return e.store.WriteAtomic(ctx, ops)
}

// ===== helpers =====

func removeStr(ss []string, s string) []string {
	out := make([]string, 0, len(ss))
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(ss []string, s string) []string {
	for _, v := range ss {
		if v == s {
			return append([]string{}, ss...)
		}
	}
	return append(append([]string{}, ss...), s)
}
