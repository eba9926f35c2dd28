package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	listmodel "SLProject/module/list/model"
	"SLProject/store"
	"SLProject/tools/decode"
	"SLProject/tools/errs"
)

func seedList(t *testing.T, s *store.MemStore, id, owner string, members []string) {
	t.Helper()
	l := listmodel.List{ID: id, Name: "l-" + id, OwnerID: owner, Members: members}
	doc, err := decode.EncodeMap(l)
	require.NoError(t, err)
	require.NoError(t, s.WriteAtomic(context.Background(),
		[]store.WriteOp{store.Insert(store.KindList, id, doc)}))
}

func TestAuthorizeListChannel(t *testing.T) {
	ms := store.NewMemStore()
	seedList(t, ms, "l1", "alice", []string{"alice", "bob"})
	gw := NewGateway(ms)
	ctx := context.Background()

	assert.NoError(t, gw.Authorize(ctx, "alice", "list:l1"))
	assert.NoError(t, gw.Authorize(ctx, "bob", "list:l1"))

	err := gw.Authorize(ctx, "carol", "list:l1")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))

	// a missing list is NotFound, distinct from a membership denial
	err = gw.Authorize(ctx, "alice", "list:ghost")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestAuthorizeUserChannel(t *testing.T) {
	gw := NewGateway(store.NewMemStore())
	ctx := context.Background()

	assert.NoError(t, gw.Authorize(ctx, "alice", "user:alice"))

	err := gw.Authorize(ctx, "alice", "user:bob")
	assert.Equal(t, errs.ForbiddenError, errs.Code(err))
}

func TestAuthorizeUnknownNamespace(t *testing.T) {
	gw := NewGateway(store.NewMemStore())
	err := gw.Authorize(context.Background(), "alice", "topic:x")
	assert.Equal(t, errs.InvalidArgumentError, errs.Code(err))
}
