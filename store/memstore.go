package store

import (
	"context"
	"strings"
	"sync"

	"SLProject/tools/errs"
)

// MemStore is the in-memory implementation, used by tests and by
// single-node development runs without Mongo/Postgres.
type MemStore struct {
	mu   sync.RWMutex
	data map[Kind]map[string]map[string]any
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[Kind]map[string]map[string]any{
		KindUser: {},
		KindList: {},
		KindItem: {},
	}}
}

func (m *MemStore) Get(_ context.Context, kind Kind, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[kind][id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("get", "kind", string(kind), "id", id)
	}
	return copyDoc(doc), nil
}

func (m *MemStore) FindMany(_ context.Context, kind Kind, f Filter) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []map[string]any
	for _, doc := range m.data[kind] {
		if matches(doc, f) {
			out = append(out, copyDoc(doc))
		}
	}
	return out, nil
}

// WriteAtomic validates every op against current state, then applies all
// of them under one lock. A CAS miss or duplicate insert aborts the whole
// batch with nothing applied.
func (m *MemStore) WriteAtomic(_ context.Context, ops []WriteOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		coll, ok := m.data[op.Kind]
		if !ok {
			return errs.ErrInvalidArgument.WrapMsg("unknown kind", "kind", string(op.Kind))
		}
		switch op.Op {
		case OpInsert:
			if _, exists := coll[op.ID]; exists {
				return errs.ErrConflict.WrapMsg("insert exists", "kind", string(op.Kind), "id", op.ID)
			}
		case OpUpdate:
			cur, exists := coll[op.ID]
			if !exists {
				return errs.ErrNotFound.WrapMsg("update target missing", "kind", string(op.Kind), "id", op.ID)
			}
			for field, want := range op.Expect {
				if !ValuesEqual(cur[field], want) {
					return errs.ErrConflict.WrapMsg("precondition failed", "kind", string(op.Kind), "id", op.ID, "field", field)
				}
			}
		}
	}

	for _, op := range ops {
		coll := m.data[op.Kind]
		switch op.Op {
		case OpInsert:
			doc := copyDoc(op.Doc)
			normalizeInPlace(doc)
			coll[op.ID] = doc
		case OpUpdate:
			for field, v := range op.Set {
				coll[op.ID][field] = Normalize(v)
			}
		}
	}
	return nil
}

func matches(doc map[string]any, f Filter) bool {
	for field, want := range f.Eq {
		if !ValuesEqual(doc[field], want) {
			return false
		}
	}
	for field, want := range f.Like {
		s, _ := doc[field].(string)
		if !strings.Contains(strings.ToLower(s), strings.ToLower(want)) {
			return false
		}
	}
	for field, want := range f.Contains {
		if !sliceContains(doc[field], want) {
			return false
		}
	}
	for field, set := range f.In {
		s, _ := doc[field].(string)
		found := false
		for _, v := range set {
			if v == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sliceContains(v any, want string) bool {
	switch arr := v.(type) {
	case []any:
		for _, e := range arr {
			if s, ok := e.(string); ok && s == want {
				return true
			}
		}
	case []string:
		for _, s := range arr {
			if s == want {
				return true
			}
		}
	}
	return false
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = Normalize(v)
	}
	return out
}

func normalizeInPlace(doc map[string]any) {
	for k, v := range doc {
		doc[k] = Normalize(v)
	}
}
