package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SLProject/tools/errs"
)

func seed(t *testing.T, s *MemStore, kind Kind, id string, doc map[string]any) {
	t.Helper()
	require.NoError(t, s.WriteAtomic(context.Background(), []WriteOp{Insert(kind, id, doc)}))
}

func TestMemStoreGet(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	seed(t, s, KindUser, "u1", map[string]any{"id": "u1", "fullName": "Alice"})

	doc, err := s.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", doc["fullName"])

	_, err = s.Get(ctx, KindUser, "nope")
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestMemStoreInsertConflict(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	seed(t, s, KindUser, "u1", map[string]any{"id": "u1"})

	err := s.WriteAtomic(ctx, []WriteOp{Insert(KindUser, "u1", map[string]any{"id": "u1"})})
	assert.Equal(t, errs.ConflictError, errs.Code(err))
}

func TestMemStoreCAS(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	seed(t, s, KindUser, "u1", map[string]any{"id": "u1", "friends": []string{"a"}})

	// matching precondition applies
	err := s.WriteAtomic(ctx, []WriteOp{Update(KindUser, "u1",
		map[string]any{"friends": []string{"a", "b"}},
		map[string]any{"friends": []string{"a"}},
	)})
	require.NoError(t, err)

	// stale precondition conflicts
	err = s.WriteAtomic(ctx, []WriteOp{Update(KindUser, "u1",
		map[string]any{"friends": []string{"a", "c"}},
		map[string]any{"friends": []string{"a"}},
	)})
	assert.Equal(t, errs.ConflictError, errs.Code(err))

	// missing target is NotFound, not Conflict
	err = s.WriteAtomic(ctx, []WriteOp{Update(KindUser, "nope", map[string]any{"x": 1}, nil)})
	assert.Equal(t, errs.NotFoundError, errs.Code(err))
}

func TestMemStoreBatchAllOrNothing(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	seed(t, s, KindUser, "u1", map[string]any{"id": "u1", "friends": []string{}})

	err := s.WriteAtomic(ctx, []WriteOp{
		Update(KindUser, "u1", map[string]any{"friends": []string{"u2"}}, map[string]any{"friends": []string{}}),
		Update(KindUser, "missing", map[string]any{"friends": []string{"u1"}}, nil),
	})
	assert.Equal(t, errs.NotFoundError, errs.Code(err))

	doc, err := s.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	assert.Empty(t, doc["friends"], "failed batch leaves no partial writes")
}

func TestMemStoreFindMany(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	seed(t, s, KindUser, "u1", map[string]any{"id": "u1", "fullName": "Alice Smith", "friends": []string{"u2"}})
	seed(t, s, KindUser, "u2", map[string]any{"id": "u2", "fullName": "Bob Jones", "friends": []string{"u1"}})
	seed(t, s, KindUser, "u3", map[string]any{"id": "u3", "fullName": "Carol Smith", "friends": []string{}})

	got, err := s.FindMany(ctx, KindUser, Filter{Contains: map[string]string{"friends": "u1"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0]["id"])

	got, err = s.FindMany(ctx, KindUser, Filter{Like: map[string]string{"fullName": "smith"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.FindMany(ctx, KindUser, Filter{In: map[string][]string{"id": {"u1", "u3"}}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.FindMany(ctx, KindUser, Filter{Eq: map[string]any{"fullName": "Bob Jones"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0]["id"])
}

func TestMemStoreReturnsCopies(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	seed(t, s, KindUser, "u1", map[string]any{"id": "u1", "fullName": "Alice"})

	doc, err := s.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	doc["fullName"] = "Mallory"

	again, err := s.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again["fullName"])
}
