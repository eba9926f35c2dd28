package membership

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SLProject/module/events"
	usermodel "SLProject/module/user/model"
	"SLProject/store"
	"SLProject/tools/decode"
	"SLProject/tools/errs"
)

type recordSink struct {
	mu   sync.Mutex
	evts []events.Event
}

func (r *recordSink) Publish(evts ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evts = append(r.evts, evts...)
}

func (r *recordSink) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.evts...)
}

func (r *recordSink) onChannel(ch string) []events.Event {
	var out []events.Event
	for _, e := range r.all() {
		if e.Channel == ch {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	engine *Engine
	store  *store.MemStore
	sink   *recordSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := store.NewMemStore()
	sink := &recordSink{}
	eng := NewEngine(ms, sink)
	n := 0
	eng.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	eng.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return &fixture{engine: eng, store: ms, sink: sink}
}

func (f *fixture) seedUser(t *testing.T, id, name string) {
	t.Helper()
	u := usermodel.User{ID: id, Email: id + "@example.com", FullName: name}
	doc, err := decode.EncodeMap(u)
	require.NoError(t, err)
	require.NoError(t, f.store.WriteAtomic(context.Background(),
		[]store.WriteOp{store.Insert(store.KindUser, id, doc)}))
}

func (f *fixture) user(t *testing.T, id string) *usermodel.User {
	t.Helper()
	u, err := store.GetUser(context.Background(), f.store, id)
	require.NoError(t, err)
	return u
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.engine.SendFriendRequest(ctx, a, b))
	require.NoError(t, f.engine.AcceptFriendRequest(ctx, b, a))
}

func TestSendFriendRequest(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()

	require.NoError(t, f.engine.SendFriendRequest(ctx, "alice", "bob"))
	assert.Equal(t, []string{"alice"}, f.user(t, "bob").FriendRequests)

	got := f.sink.onChannel(events.UserChannel("bob"))
	require.Len(t, got, 1)
	assert.Equal(t, events.FriendRequestReceived, got[0].Name)

	// resend keeps the pending set duplicate-free
	require.NoError(t, f.engine.SendFriendRequest(ctx, "alice", "bob"))
	assert.Equal(t, []string{"alice"}, f.user(t, "bob").FriendRequests)
}

func TestSendFriendRequestRejectsSelfAndUnknown(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	ctx := context.Background()

	err := f.engine.SendFriendRequest(ctx, "alice", "alice")
	assert.Equal(t, errs.InvalidArgumentError, errs.Code(err))

	err = f.engine.SendFriendRequest(ctx, "alice", "ghost")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestSendFriendRequestBlocked(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()

	require.NoError(t, f.engine.BlockUser(ctx, "bob", "alice"))
	err := f.engine.SendFriendRequest(ctx, "alice", "bob")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))
}

func TestAcceptFriendRequestSymmetric(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()

	require.NoError(t, f.engine.SendFriendRequest(ctx, "alice", "bob"))
	require.NoError(t, f.engine.AcceptFriendRequest(ctx, "bob", "alice"))

	assert.Equal(t, []string{"alice"}, f.user(t, "bob").Friends)
	assert.Equal(t, []string{"bob"}, f.user(t, "alice").Friends)
	assert.Empty(t, f.user(t, "bob").FriendRequests)

	// accepting again fails: the request was consumed
	err := f.engine.AcceptFriendRequest(ctx, "bob", "alice")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))

	// a re-request towards an existing friend is a conflict
	err = f.engine.SendFriendRequest(ctx, "alice", "bob")
	assert.Equal(t, errs.ConflictError, errs.Code(err))
}

func TestRejectFriendRequest(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()

	require.NoError(t, f.engine.SendFriendRequest(ctx, "alice", "bob"))
	before := len(f.sink.all())

	require.NoError(t, f.engine.RejectFriendRequest(ctx, "bob", "alice"))
	assert.Empty(t, f.user(t, "bob").FriendRequests)
	assert.Empty(t, f.user(t, "bob").Friends)
	assert.Len(t, f.sink.all(), before, "rejection is silent")

	err := f.engine.RejectFriendRequest(ctx, "bob", "alice")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestRemoveFriendBothDirections(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	require.NoError(t, f.engine.RemoveFriend(ctx, "alice", "bob"))
	assert.Empty(t, f.user(t, "alice").Friends)
	assert.Empty(t, f.user(t, "bob").Friends)

	err := f.engine.RemoveFriend(ctx, "alice", "bob")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestBlockUserSeversFriendship(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	require.NoError(t, f.engine.BlockUser(ctx, "alice", "bob"))
	assert.Empty(t, f.user(t, "alice").Friends)
	assert.Empty(t, f.user(t, "bob").Friends)
	assert.Equal(t, []string{"bob"}, f.user(t, "alice").Blocked)
}

func TestCreateList(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	ctx := context.Background()

	list, err := f.engine.CreateList(ctx, "alice", "  groceries ")
	require.NoError(t, err)
	assert.Equal(t, "groceries", list.Name)
	assert.Equal(t, "alice", list.OwnerID)
	assert.Equal(t, []string{"alice"}, list.Members)

	_, err = f.engine.CreateList(ctx, "alice", "   ")
	assert.Equal(t, errs.InvalidArgumentError, errs.Code(err))
}

func TestInviteToList(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	f.seedUser(t, "carol", "Carol")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)

	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))
	assert.Equal(t, []string{list.ID}, f.user(t, "bob").GroupInvites)

	// invite fans out both to the invitee and to current members
	assert.Len(t, f.sink.onChannel(events.UserChannel("bob")), 2) // friendRequest + invite
	room := f.sink.onChannel(events.ListChannel(list.ID))
	require.Len(t, room, 1)
	assert.Equal(t, events.MemberInvited, room[0].Name)

	// non-owner cannot invite
	err = f.engine.InviteToList(ctx, "bob", list.ID, "carol")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))

	// owner cannot invite a non-friend
	err = f.engine.InviteToList(ctx, "alice", list.ID, "carol")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))

	// double invite conflicts
	err = f.engine.InviteToList(ctx, "alice", list.ID, "bob")
	assert.Equal(t, errs.ConflictError, errs.Code(err))
}

func TestRevokeInvite(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)
	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))

	err = f.engine.RevokeInvite(ctx, "bob", list.ID, "bob")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))

	require.NoError(t, f.engine.RevokeInvite(ctx, "alice", list.ID, "bob"))
	assert.Empty(t, f.user(t, "bob").GroupInvites)

	err = f.engine.RevokeInvite(ctx, "alice", list.ID, "bob")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestAcceptInvite(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)
	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))

	got, err := f.engine.AcceptInvite(ctx, "bob", list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Members)
	assert.Empty(t, f.user(t, "bob").GroupInvites, "invite is consumed")

	_, err = f.engine.AcceptInvite(ctx, "bob", list.ID)
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestAcceptInviteBefriendsOwner(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)
	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))

	// sever the friendship while the invite is pending
	require.NoError(t, f.engine.RemoveFriend(ctx, "alice", "bob"))

	_, err = f.engine.AcceptInvite(ctx, "bob", list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, f.user(t, "bob").Friends)
	assert.Equal(t, []string{"bob"}, f.user(t, "alice").Friends)
}

func TestAcceptInviteConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)
	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))

	const n = 8
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.AcceptInvite(ctx, "bob", list.ID)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	ok := 0
	for err := range errCh {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok, "exactly one accept wins")

	l, err := store.GetList(ctx, f.store, list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, l.Members, "no duplicate membership")
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	f.seedUser(t, "carol", "Carol")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")
	f.befriend(t, "alice", "carol")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)
	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))
	_, err = f.engine.AcceptInvite(ctx, "bob", list.ID)
	require.NoError(t, err)

	// non-owner cannot remove others
	err = f.engine.RemoveMember(ctx, "bob", list.ID, "alice")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))

	// the owner is not a removable target, however addressed
	err = f.engine.RemoveMember(ctx, "alice", list.ID, "alice")
	assert.Equal(t, errs.InvalidArgumentError, errs.Code(err))

	require.NoError(t, f.engine.RemoveMember(ctx, "alice", list.ID, "bob"))
	l, err := store.GetList(ctx, f.store, list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, l.Members)

	room := f.sink.onChannel(events.ListChannel(list.ID))
	last := room[len(room)-1]
	assert.Equal(t, events.MemberRemoved, last.Name)

	err = f.engine.RemoveMember(ctx, "alice", list.ID, "bob")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestRemoveMemberSelfLeave(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()
	f.befriend(t, "alice", "bob")

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)
	require.NoError(t, f.engine.InviteToList(ctx, "alice", list.ID, "bob"))
	_, err = f.engine.AcceptInvite(ctx, "bob", list.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.RemoveMember(ctx, "bob", list.ID, "bob"))
	l, err := store.GetList(ctx, f.store, list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, l.Members)

	room := f.sink.onChannel(events.ListChannel(list.ID))
	last := room[len(room)-1]
	assert.Equal(t, events.MemberRemoved, last.Name)
	p := last.Payload.(events.MemberRemovedPayload)
	assert.Equal(t, "bob", p.MemberID)
	assert.Equal(t, "bob", p.RemovedBy)
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)

	item, err := f.engine.AddItem(ctx, "alice", list.ID, "buy milk", map[string]any{"qty": 2})
	require.NoError(t, err)
	assert.Equal(t, list.ID, item.ListID)
	assert.False(t, item.Completed)

	room := f.sink.onChannel(events.ListChannel(list.ID))
	require.Len(t, room, 1)
	assert.Equal(t, events.ItemAdded, room[0].Name)

	// non-members cannot write
	_, err = f.engine.AddItem(ctx, "bob", list.ID, "sneaky", nil)
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))

	_, err = f.engine.AddItem(ctx, "alice", list.ID, "  ", nil)
	assert.Equal(t, errs.InvalidArgumentError, errs.Code(err))
}

func TestToggleItemCompletion(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	f.seedUser(t, "bob", "Bob")
	ctx := context.Background()

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)

	item, err := f.engine.AddItem(ctx, "alice", list.ID, "buy milk", nil)
	require.NoError(t, err)

	// the list is resolved from the item, not passed by the caller
	got, err := f.engine.ToggleItemCompletion(ctx, "alice", item.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, list.ID, got.ListID)

	got, err = f.engine.ToggleItemCompletion(ctx, "alice", item.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)

	_, err = f.engine.ToggleItemCompletion(ctx, "alice", "ghost-item")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))

	_, err = f.engine.ToggleItemCompletion(ctx, "bob", item.ID)
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))
}

func TestEventOrderMatchesCommitOrder(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "Alice")
	ctx := context.Background()

	list, err := f.engine.CreateList(ctx, "alice", "trip")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.AddItem(ctx, "alice", list.ID, fmt.Sprintf("item %d", i), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := store.FindItems(ctx, f.store, store.Filter{Eq: map[string]any{"listId": list.ID}})
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Len(t, f.sink.onChannel(events.ListChannel(list.ID)), 4)
}
