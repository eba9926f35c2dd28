package store

import (
	"context"
	"regexp"

	"SLProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore is the primary Store implementation. Documents are stored
// as-is with _id mirroring the "id" field; WriteAtomic runs inside one
// multi-document transaction so the batch commits together or not at all.
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

func (s *MongoStore) coll(kind Kind) *mongo.Collection {
	return s.DB.Collection(string(kind))
}

func (s *MongoStore) Get(ctx context.Context, kind Kind, id string) (map[string]any, error) {
	var doc bson.M
	err := s.coll(kind).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("get", "kind", string(kind), "id", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo get", "kind", string(kind), "id", id)
	}
	return fromBSON(doc), nil
}

func (s *MongoStore) FindMany(ctx context.Context, kind Kind, f Filter) ([]map[string]any, error) {
	query := bson.M{}
	for field, v := range f.Eq {
		query[field] = Normalize(v)
	}
	for field, v := range f.Contains {
		query[field] = v // mongo array equality matches elements
	}
	for field, set := range f.In {
		query[field] = bson.M{"$in": set}
	}
	for field, sub := range f.Like {
		query[field] = primitive.Regex{Pattern: regexp.QuoteMeta(sub), Options: "i"}
	}

	cur, err := s.coll(kind).Find(ctx, query)
	if err != nil {
		return nil, errs.WrapMsg(err, "mongo find", "kind", string(kind))
	}
	defer cur.Close(ctx)

	var out []map[string]any
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.WrapMsg(err, "mongo decode", "kind", string(kind))
		}
		out = append(out, fromBSON(doc))
	}
	return out, cur.Err()
}

func (s *MongoStore) WriteAtomic(ctx context.Context, ops []WriteOp) error {
	sess, err := s.DB.Client().StartSession()
	if err != nil {
		return errs.WrapMsg(err, "mongo start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		for _, op := range ops {
			if err := s.applyOp(sc, op); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) applyOp(sc mongo.SessionContext, op WriteOp) error {
	coll := s.coll(op.Kind)
	switch op.Op {
	case OpInsert:
		doc := toBSON(op.Doc)
		doc["_id"] = op.ID
		if _, err := coll.InsertOne(sc, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errs.ErrConflict.WrapMsg("insert exists", "kind", string(op.Kind), "id", op.ID)
			}
			return errs.WrapMsg(err, "mongo insert", "kind", string(op.Kind), "id", op.ID)
		}
		return nil

	case OpUpdate:
		filter := bson.M{"_id": op.ID}
		for field, want := range op.Expect {
			filter[field] = Normalize(want)
		}
		res, err := coll.UpdateOne(sc, filter, bson.M{"$set": toBSON(op.Set)})
		if err != nil {
			return errs.WrapMsg(err, "mongo update", "kind", string(op.Kind), "id", op.ID)
		}
		if res.MatchedCount == 0 {
			// existence check decides NotFound vs CAS Conflict
			n, err := coll.CountDocuments(sc, bson.M{"_id": op.ID})
			if err != nil {
				return errs.WrapMsg(err, "mongo count", "kind", string(op.Kind), "id", op.ID)
			}
			if n == 0 {
				return errs.ErrNotFound.WrapMsg("update target missing", "kind", string(op.Kind), "id", op.ID)
			}
			return errs.ErrConflict.WrapMsg("precondition failed", "kind", string(op.Kind), "id", op.ID)
		}
		return nil

	default:
		return errs.ErrInvalidArgument.WrapMsg("unknown op")
	}
}

// fromBSON strips _id and converts bson shapes into plain maps/slices.
func fromBSON(doc bson.M) map[string]any {
	delete(doc, "_id")
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = bsonValue(v)
	}
	return out
}

func toBSON(m map[string]any) bson.M {
	out := bson.M{}
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

func bsonValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = bsonValue(e)
		}
		return out
	case bson.A:
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, bsonValue(e))
		}
		return out
	case primitive.DateTime:
		return t.Time()
	default:
		return v
	}
}

