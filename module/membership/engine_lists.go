package membership

import (
	"context"
	"strings"

	"SLProject/module/events"
	listmodel "SLProject/module/list/model"
	"SLProject/store"
	"SLProject/tools/decode"
	"SLProject/tools/errs"
)

// CreateList creates a list owned by owner, who becomes its first member.
func (e *Engine) CreateList(ctx context.Context, owner, name string) (*listmodel.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrInvalidArgument.WrapMsg("list name is required")
	}
	unlock := e.locks.LockAll(userKey(owner))
	defer unlock()

	if _, err := store.GetUser(ctx, e.store, owner); err != nil {
		return nil, err
	}

	now := e.now()
	list := listmodel.List{
		ID:        e.newID(),
		Name:      name,
		OwnerID:   owner,
		Members:   []string{owner},
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc, err := decode.EncodeMap(list)
	if err != nil {
		return nil, err
	}
	if err := e.store.WriteAtomic(ctx, []store.WriteOp{
		store.Insert(store.KindList, list.ID, doc),
	}); err != nil {
		return nil, err
	}
	return &list, nil
}

// InviteToList records a pending invite on the invitee. Only the owner
// may invite, and only friends of the owner can be invited.
func (e *Engine) InviteToList(ctx context.Context, actor, listID, inviteeID string) error {
	unlock := e.locks.LockAll(listKey(listID), userKey(actor), userKey(inviteeID))
	defer unlock()

	list, err := store.GetList(ctx, e.store, listID)
	if err != nil {
		return err
	}
	if list.OwnerID != actor {
		return errs.ErrForbidden.WrapMsg("only the owner can invite", "listId", listID, "actor", actor)
	}
	owner, err := store.GetUser(ctx, e.store, actor)
	if err != nil {
		return err
	}
	if !owner.HasFriend(inviteeID) {
		return errs.ErrForbidden.WrapMsg("can only invite friends", "invitee", inviteeID)
	}
	invitee, err := store.GetUser(ctx, e.store, inviteeID)
	if err != nil {
		return err
	}
	if list.HasMember(inviteeID) {
		return errs.ErrConflict.WrapMsg("already a member", "listId", listID, "invitee", inviteeID)
	}
	if invitee.HasGroupInvite(listID) {
		return errs.ErrConflict.WrapMsg("already invited", "listId", listID, "invitee", inviteeID)
	}

	op := store.Update(store.KindUser, inviteeID,
		map[string]any{
			"groupInvites": append(append([]string{}, invitee.GroupInvites...), listID),
			"updatedAt":    e.now(),
		},
		map[string]any{"groupInvites": invitee.GroupInvites},
	)
	if err := e.store.WriteAtomic(ctx, []store.WriteOp{op}); err != nil {
		return err
	}

	e.publish(
		events.NewListInviteReceived(inviteeID, listID, list.Name, owner.ID, owner.FullName),
		events.NewMemberInvited(listID, inviteeID, invitee.FullName),
	)
	return nil
}

// RevokeInvite withdraws a pending invite before it is accepted.
// Owner-only; no event is emitted.
func (e *Engine) RevokeInvite(ctx context.Context, actor, listID, inviteeID string) error {
	unlock := e.locks.LockAll(listKey(listID), userKey(inviteeID))
	defer unlock()

	list, err := store.GetList(ctx, e.store, listID)
	if err != nil {
		return err
	}
	if list.OwnerID != actor {
		return errs.ErrForbidden.WrapMsg("only the owner can revoke an invite", "listId", listID, "actor", actor)
	}
	invitee, err := store.GetUser(ctx, e.store, inviteeID)
	if err != nil {
		return err
	}
	if !invitee.HasGroupInvite(listID) {
		return errs.ErrNotFound.WrapMsg("invite not found", "listId", listID, "invitee", inviteeID)
	}

	op := store.Update(store.KindUser, inviteeID,
		map[string]any{
			"groupInvites": removeStr(invitee.GroupInvites, listID),
			"updatedAt":    e.now(),
		},
		map[string]any{"groupInvites": invitee.GroupInvites},
	)
	return e.store.WriteAtomic(ctx, []store.WriteOp{op})
}

// AcceptInvite turns a pending invite into membership. The invite is
// consumed and the accepting user is befriended with the owner if they
// are not friends already, so every member pair shares at least one
// social edge with the owner.
func (e *Engine) AcceptInvite(ctx context.Context, user, listID string) (*listmodel.List, error) {
	unlock := e.locks.LockAll(listKey(listID), userKey(user))
	defer unlock()

	u, err := store.GetUser(ctx, e.store, user)
	if err != nil {
		return nil, err
	}
	if !u.HasGroupInvite(listID) {
		return nil, errs.ErrNotFound.WrapMsg("invite not found", "listId", listID, "user", user)
	}
	list, err := store.GetList(ctx, e.store, listID)
	if err != nil {
		return nil, err
	}
	if list.HasMember(user) {
		return nil, errs.ErrConflict.WrapMsg("already a member", "listId", listID, "user", user)
	}

	now := e.now()
	ops := []store.WriteOp{
		store.Update(store.KindList, listID,
			map[string]any{
				"members":   append(append([]string{}, list.Members...), user),
				"updatedAt": now,
			},
			map[string]any{"members": list.Members},
		),
		store.Update(store.KindUser, user,
			map[string]any{
				"groupInvites": removeStr(u.GroupInvites, listID),
				"friends":      appendUnique(u.Friends, list.OwnerID),
				"updatedAt":    now,
			},
			map[string]any{"groupInvites": u.GroupInvites, "friends": u.Friends},
		),
	}
	if !u.HasFriend(list.OwnerID) {
		// The owner key is not held here (it is only known after the
		// list read, and taking it now would break the sorted lock
		// order). The Expect clause on the owner's friends array keeps
		// the write safe: a concurrent change surfaces as Conflict.
		owner, err := store.GetUser(ctx, e.store, list.OwnerID)
		if err != nil {
			return nil, err
		}
		ops = append(ops, store.Update(store.KindUser, list.OwnerID,
			map[string]any{
				"friends":   appendUnique(owner.Friends, user),
				"updatedAt": now,
			},
			map[string]any{"friends": owner.Friends},
		))
	}
	if err := e.store.WriteAtomic(ctx, ops); err != nil {
		return nil, err
	}

	list.Members = append(list.Members, user)
	list.UpdatedAt = now
	return list, nil
}

// RemoveMember takes member out of the list. The owner can remove
// anyone but themselves; a member can remove themselves (leave).
func (e *Engine) RemoveMember(ctx context.Context, actor, listID, memberID string) error {
	unlock := e.locks.LockAll(listKey(listID), userKey(memberID))
	defer unlock()

	list, err := store.GetList(ctx, e.store, listID)
	if err != nil {
		return err
	}
	if actor != list.OwnerID && actor != memberID {
		return errs.ErrForbidden.WrapMsg("not allowed to remove this member", "listId", listID, "actor", actor)
	}
	if memberID == list.OwnerID {
		return errs.ErrInvalidArgument.WrapMsg("the owner cannot be removed", "listId", listID)
	}
	if !list.HasMember(memberID) {
		return errs.ErrNotFound.WrapMsg("member not found", "listId", listID, "member", memberID)
	}

	op := store.Update(store.KindList, listID,
		map[string]any{
			"members":   removeStr(list.Members, memberID),
			"updatedAt": e.now(),
		},
		map[string]any{"members": list.Members},
	)
	if err := e.store.WriteAtomic(ctx, []store.WriteOp{op}); err != nil {
		return err
	}

	e.publish(events.NewMemberRemoved(listID, memberID, actor))
	return nil
}

// AddItem appends an item to the list; any current member may add.
func (e *Engine) AddItem(ctx context.Context, actor, listID, content string, metadata map[string]any) (*listmodel.Item, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.ErrInvalidArgument.WrapMsg("item content is required")
	}
	unlock := e.locks.LockAll(listKey(listID))
	defer unlock()

	list, err := store.GetList(ctx, e.store, listID)
	if err != nil {
		return nil, err
	}
	if !list.HasMember(actor) {
		return nil, errs.ErrForbidden.WrapMsg("not a member", "listId", listID, "actor", actor)
	}

	item := listmodel.Item{
		ID:        e.newID(),
		ListID:    listID,
		Content:   content,
		Metadata:  metadata,
		Completed: false,
		CreatedAt: e.now(),
	}
	doc, err := decode.EncodeMap(item)
	if err != nil {
		return nil, err
	}
	if err := e.store.WriteAtomic(ctx, []store.WriteOp{
		store.Insert(store.KindItem, item.ID, doc),
	}); err != nil {
		return nil, err
	}

	e.publish(events.NewItemAdded(listID, item))
	return &item, nil
}

// ToggleItemCompletion flips the completed flag; any current member of
// the item's list may toggle. The list is only known after the item
// read, so the locks are taken from an unlocked probe and the item is
// re-read under them; an item's list never changes, so the probed list
// key stays correct.
func (e *Engine) ToggleItemCompletion(ctx context.Context, actor, itemID string) (*listmodel.Item, error) {
	probe, err := store.GetItem(ctx, e.store, itemID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.LockAll(listKey(probe.ListID), itemKey(itemID))
	defer unlock()

	item, err := store.GetItem(ctx, e.store, itemID)
	if err != nil {
		return nil, err
	}
	list, err := store.GetList(ctx, e.store, item.ListID)
	if err != nil {
		return nil, err
	}
	if !list.HasMember(actor) {
		return nil, errs.ErrForbidden.WrapMsg("not a member", "listId", item.ListID, "actor", actor)
	}

	op := store.Update(store.KindItem, itemID,
		map[string]any{"completed": !item.Completed},
		map[string]any{"completed": item.Completed},
	)
	if err := e.store.WriteAtomic(ctx, []store.WriteOp{op}); err != nil {
		return nil, err
	}

	item.Completed = !item.Completed
	e.publish(events.NewItemUpdated(item.ListID, *item))
	return item, nil
}
