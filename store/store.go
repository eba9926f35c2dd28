// Package store is the record store adapter: a thin keyed-collection
// interface over the persistent entities. It carries no business logic;
// multi-entity invariants live in the membership engine, which is the
// only caller allowed to submit multi-op batches.
package store

import (
	"context"
	"encoding/json"
	"reflect"

	listmodel "SLProject/module/list/model"
	usermodel "SLProject/module/user/model"
	"SLProject/tools/decode"
	"SLProject/tools/errs"
)

type Kind string

const (
	KindUser Kind = "users"
	KindList Kind = "lists"
	KindItem Kind = "items"
)

// Filter expresses the three query shapes the read surfaces need.
// All clauses are ANDed.
type Filter struct {
	Eq       map[string]any      // field == value
	Contains map[string]string   // array field contains value
	In       map[string][]string // scalar field value in set
	Like     map[string]string   // case-insensitive substring on a string field
}

type OpType int

const (
	OpInsert OpType = iota
	OpUpdate
)

// WriteOp is a single-entity write. Updates carry compare-and-swap
// preconditions: if any Expect field no longer holds its expected value
// at commit time, the whole batch aborts with Conflict.
type WriteOp struct {
	Op   OpType
	Kind Kind
	ID   string

	Doc    map[string]any // insert: the full document
	Set    map[string]any // update: fields to overwrite
	Expect map[string]any // update: current-value preconditions
}

// Store is the external keyed-collection collaborator. All ops in one
// WriteAtomic call commit together or not at all.
type Store interface {
	Get(ctx context.Context, kind Kind, id string) (map[string]any, error)
	FindMany(ctx context.Context, kind Kind, f Filter) ([]map[string]any, error)
	WriteAtomic(ctx context.Context, ops []WriteOp) error
}

func Insert(kind Kind, id string, doc map[string]any) WriteOp {
	return WriteOp{Op: OpInsert, Kind: kind, ID: id, Doc: doc}
}

func Update(kind Kind, id string, set, expect map[string]any) WriteOp {
	return WriteOp{Op: OpUpdate, Kind: kind, ID: id, Set: set, Expect: expect}
}

// ===== typed read helpers =====

func GetUser(ctx context.Context, s Store, id string) (*usermodel.User, error) {
	doc, err := s.Get(ctx, KindUser, id)
	if err != nil {
		return nil, err
	}
	u, err := decode.DecodeMap[usermodel.User](doc)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode user", "id", id)
	}
	return u, nil
}

func GetList(ctx context.Context, s Store, id string) (*listmodel.List, error) {
	doc, err := s.Get(ctx, KindList, id)
	if err != nil {
		return nil, err
	}
	l, err := decode.DecodeMap[listmodel.List](doc)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode list", "id", id)
	}
	return l, nil
}

func GetItem(ctx context.Context, s Store, id string) (*listmodel.Item, error) {
	doc, err := s.Get(ctx, KindItem, id)
	if err != nil {
		return nil, err
	}
	it, err := decode.DecodeMap[listmodel.Item](doc)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode item", "id", id)
	}
	return it, nil
}

func FindUsers(ctx context.Context, s Store, f Filter) ([]*usermodel.User, error) {
	docs, err := s.FindMany(ctx, KindUser, f)
	if err != nil {
		return nil, err
	}
	out := make([]*usermodel.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decode.DecodeMap[usermodel.User](doc)
		if err != nil {
			return nil, errs.WrapMsg(err, "decode user")
		}
		out = append(out, u)
	}
	return out, nil
}

func FindLists(ctx context.Context, s Store, f Filter) ([]*listmodel.List, error) {
	docs, err := s.FindMany(ctx, KindList, f)
	if err != nil {
		return nil, err
	}
	out := make([]*listmodel.List, 0, len(docs))
	for _, doc := range docs {
		l, err := decode.DecodeMap[listmodel.List](doc)
		if err != nil {
			return nil, errs.WrapMsg(err, "decode list")
		}
		out = append(out, l)
	}
	return out, nil
}

func FindItems(ctx context.Context, s Store, f Filter) ([]*listmodel.Item, error) {
	docs, err := s.FindMany(ctx, KindItem, f)
	if err != nil {
		return nil, err
	}
	out := make([]*listmodel.Item, 0, len(docs))
	for _, doc := range docs {
		it, err := decode.DecodeMap[listmodel.Item](doc)
		if err != nil {
			return nil, errs.WrapMsg(err, "decode item")
		}
		out = append(out, it)
	}
	return out, nil
}

// ===== value normalization =====

// Normalize round-trips a value through JSON so that comparisons between
// in-memory values and stored documents see the same shapes
// ([]string vs []any, time.Time vs string, int vs float64).
func Normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// ValuesEqual compares two field values under normalization.
func ValuesEqual(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}
