// Package service is the read side of the friend graph.
package service

import (
	"context"
	"strings"

	usermodel "SLProject/module/user/model"
	"SLProject/store"
	"SLProject/tools/errs"
)

type FriendService struct {
	store store.Store
}

func NewFriendService(s store.Store) *FriendService {
	return &FriendService{store: s}
}

// Friends returns the caller's confirmed friends as public profiles.
func (s *FriendService) Friends(ctx context.Context, userID string) ([]usermodel.PublicUser, error) {
	u, err := store.GetUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, u.Friends)
}

// Requests returns the profiles of users with a pending inbound request.
func (s *FriendService) Requests(ctx context.Context, userID string) ([]usermodel.PublicUser, error) {
	u, err := store.GetUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, u.FriendRequests)
}

// Search finds users by email substring, excluding the caller and anyone
// the caller has blocked or been blocked by.
func (s *FriendService) Search(ctx context.Context, callerID, email string) ([]usermodel.PublicUser, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errs.ErrInvalidArgument.WrapMsg("email query is required")
	}
	caller, err := store.GetUser(ctx, s.store, callerID)
	if err != nil {
		return nil, err
	}
	users, err := store.FindUsers(ctx, s.store, store.Filter{
		Like: map[string]string{"email": email},
	})
	if err != nil {
		return nil, err
	}
	out := make([]usermodel.PublicUser, 0, len(users))
	for _, u := range users {
		if u.ID == callerID || hidden(caller, u) {
			continue
		}
		out = append(out, u.Public())
	}
	return out, nil
}

func hidden(caller, other *usermodel.User) bool {
	for _, id := range caller.Blocked {
		if id == other.ID {
			return true
		}
	}
	for _, id := range other.Blocked {
		if id == caller.ID {
			return true
		}
	}
	return false
}

func (s *FriendService) profiles(ctx context.Context, ids []string) ([]usermodel.PublicUser, error) {
	if len(ids) == 0 {
		return []usermodel.PublicUser{}, nil
	}
	users, err := store.FindUsers(ctx, s.store, store.Filter{
		In: map[string][]string{"id": ids},
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
