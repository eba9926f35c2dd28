package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SLProject/module/events"
	usermodel "SLProject/module/user/model"
)

func loadedFriendState() *FriendState {
	s := NewFriendState("u-bob")
	s.Load(
		[]usermodel.PublicUser{{ID: "u-alice", FullName: "Alice"}},
		[]usermodel.PublicUser{{ID: "u-carol", FullName: "Carol"}},
		[]events.ListInvitePayload{{ListID: "l-1", ListName: "Groceries", InviterID: "u-alice"}},
	)
	return s
}

func TestFriendRequestReceivedDedupes(t *testing.T) {
	s := loadedFriendState()

	evt := events.NewFriendRequestReceived("u-bob", "u-dave", "Dave")
	evt.Seq = 1
	require.NoError(t, s.Apply(evt))
	require.NoError(t, s.Apply(evt))

	require.Len(t, s.Requests(), 2)

	// a resend from an existing friend changes nothing
	fromFriend := events.NewFriendRequestReceived("u-bob", "u-alice", "Alice")
	fromFriend.Seq = 2
	require.NoError(t, s.Apply(fromFriend))
	assert.Len(t, s.Requests(), 2)
}

func TestListInviteReceivedDedupes(t *testing.T) {
	s := loadedFriendState()

	evt := events.NewListInviteReceived("u-bob", "l-1", "Groceries", "u-alice", "Alice")
	evt.Seq = 1
	require.NoError(t, s.Apply(evt))

	assert.Len(t, s.Invites(), 1)
}

func TestOptimisticAcceptConfirm(t *testing.T) {
	s := loadedFriendState()

	require.True(t, s.OptimisticAccept("u-carol"))
	assert.Len(t, s.Requests(), 0)
	require.Len(t, s.Friends(), 2)

	s.ConfirmAccept("u-carol")
	assert.Len(t, s.Friends(), 2)
}

func TestOptimisticAcceptRollback(t *testing.T) {
	s := loadedFriendState()

	require.True(t, s.OptimisticAccept("u-carol"))
	s.RollbackAccept("u-carol")

	assert.Len(t, s.Friends(), 1)
	require.Len(t, s.Requests(), 1)
	assert.Equal(t, "u-carol", s.Requests()[0].RequesterID)

	assert.False(t, s.OptimisticAccept("u-nobody"))
}

func TestConsumeInvite(t *testing.T) {
	s := loadedFriendState()

	s.ConsumeInvite("l-1")
	assert.Empty(t, s.Invites())

	s.ConsumeInvite("l-1") // already gone
	assert.Empty(t, s.Invites())
}

func TestOtherUserChannelIgnored(t *testing.T) {
	s := loadedFriendState()

	evt := events.NewFriendRequestReceived("u-someone-else", "u-dave", "Dave")
	evt.Seq = 1
	require.NoError(t, s.Apply(evt))

	assert.Len(t, s.Requests(), 1)
}
