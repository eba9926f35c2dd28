// Package service is the read side for lists: joined views the HTTP
// surface returns. All writes go through the membership engine.
package service

import (
	"context"

	listmodel "SLProject/module/list/model"
	usermodel "SLProject/module/user/model"
	"SLProject/store"
	"SLProject/tools/errs"
)

type ListService struct {
	store store.Store
}

func NewListService(s store.Store) *ListService {
	return &ListService{store: s}
}

// ListWithItems is the dashboard view: the list plus its items.
type ListWithItems struct {
	listmodel.List
	Items []listmodel.Item `json:"items"`
}

// InviteView joins a pending invite with the list and owner display data.
type InviteView struct {
	ListID    string `json:"listId"`
	ListName  string `json:"listName"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
}

// ListsForUser returns every list the user belongs to, items included.
func (s *ListService) ListsForUser(ctx context.Context, userID string) ([]ListWithItems, error) {
	lists, err := store.FindLists(ctx, s.store, store.Filter{
		Contains: map[string]string{"members": userID},
	})
	if err != nil {
		return nil, err
	}
	out := make([]ListWithItems, 0, len(lists))
	for _, l := range lists {
		items, err := store.FindItems(ctx, s.store, store.Filter{
			Eq: map[string]any{"listId": l.ID},
		})
		if err != nil {
			return nil, err
		}
		view := ListWithItems{List: *l, Items: make([]listmodel.Item, 0, len(items))}
		for _, it := range items {
			view.Items = append(view.Items, *it)
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *ListService) memberList(ctx context.Context, callerID, listID string) (*listmodel.List, error) {
	list, err := store.GetList(ctx, s.store, listID)
	if err != nil {
		return nil, err
	}
	if !list.HasMember(callerID) {
		return nil, errs.ErrForbidden.WrapMsg("not a member", "listId", listID, "caller", callerID)
	}
	return list, nil
}

// Members returns the member profiles; caller must be a member itself.
func (s *ListService) Members(ctx context.Context, callerID, listID string) ([]usermodel.PublicUser, error) {
	list, err := s.memberList(ctx, callerID, listID)
	if err != nil {
		return nil, err
	}
	users, err := store.FindUsers(ctx, s.store, store.Filter{
		In: map[string][]string{"id": list.Members},
	})
	if err != nil {
		return nil, err
	}
	out := make([]usermodel.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Items returns the list's items; caller must be a member.
func (s *ListService) Items(ctx context.Context, callerID, listID string) ([]listmodel.Item, error) {
	if _, err := s.memberList(ctx, callerID, listID); err != nil {
		return nil, err
	}
	items, err := store.FindItems(ctx, s.store, store.Filter{
		Eq: map[string]any{"listId": listID},
	})
	if err != nil {
		return nil, err
	}
	out := make([]listmodel.Item, 0, len(items))
	for _, it := range items {
		out = append(out, *it)
	}
	return out, nil
}

// Invites resolves the user's pending invites into display views.
// Invites pointing at since-deleted lists are silently skipped.
func (s *ListService) Invites(ctx context.Context, userID string) ([]InviteView, error) {
	u, err := store.GetUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	out := make([]InviteView, 0, len(u.GroupInvites))
	for _, listID := range u.GroupInvites {
		list, err := store.GetList(ctx, s.store, listID)
		if err != nil {
			if errs.Code(err) == errs.NotFoundError {
				continue
			}
			return nil, err
		}
		view := InviteView{ListID: list.ID, ListName: list.Name, OwnerID: list.OwnerID}
		if owner, err := store.GetUser(ctx, s.store, list.OwnerID); err == nil {
			view.OwnerName = owner.FullName
		}
		out = append(out, view)
	}
	return out, nil
}
