package model

import "time"

// User is the account record plus its relationship sets.
// Relationship arrays hold ids only; display data is joined at read time.
//
// Invariants kept by the membership engine:
//   - a user never appears in its own Friends/FriendRequests
//   - Friends is symmetric after any committed transaction
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"` // URL, upload handled elsewhere

	Friends        []string `json:"friends"`        // confirmed friend user ids
	Blocked        []string `json:"blockedUsers"`   // blocked user ids
	FriendRequests []string `json:"friendRequests"` // pending inbound requester ids
	GroupInvites   []string `json:"groupInvites"`   // pending list invitation ids

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicUser is the projection returned by search/members/friends reads.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, FullName: u.FullName, Avatar: u.Avatar}
}

// HasFriend reports whether other is a confirmed friend.
func (u *User) HasFriend(other string) bool {
	return contains(u.Friends, other)
}

func (u *User) HasFriendRequestFrom(requester string) bool {
	return contains(u.FriendRequests, requester)
}

func (u *User) HasGroupInvite(listID string) bool {
	return contains(u.GroupInvites, listID)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
