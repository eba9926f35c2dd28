package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"SLProject/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres implementation: one records table keyed by
// (kind, id) with the entity document in a JSONB column. WriteAtomic is
// a plain SQL transaction.
type PGStore struct {
	Pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS records (
    kind TEXT  NOT NULL,
    id   TEXT  NOT NULL,
    doc  JSONB NOT NULL,
    PRIMARY KEY (kind, id)
);`

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.WrapMsg(err, "pg connect")
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "pg ensure schema")
	}
	return &PGStore{Pool: pool}, nil
}

func (s *PGStore) Close() {
	s.Pool.Close()
}

func (s *PGStore) Get(ctx context.Context, kind Kind, id string) (map[string]any, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT doc FROM records WHERE kind=$1 AND id=$2`, string(kind), id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, errs.ErrNotFound.WrapMsg("get", "kind", string(kind), "id", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "pg get", "kind", string(kind), "id", id)
	}
	return unmarshalDoc(raw)
}

func (s *PGStore) FindMany(ctx context.Context, kind Kind, f Filter) ([]map[string]any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT doc FROM records WHERE kind=$1`)
	args = append(args, string(kind))

	add := func(clause string, v any) {
		args = append(args, v)
		sb.WriteString(fmt.Sprintf(clause, len(args)))
	}
	for field, v := range f.Eq {
		b, _ := json.Marshal(Normalize(v))
		add(` AND doc->'`+field+`' = $%d::jsonb`, string(b))
	}
	for field, v := range f.Contains {
		// jsonb ? matches a string element of an array
		add(` AND doc->'`+field+`' ? $%d`, v)
	}
	for field, set := range f.In {
		add(` AND doc->>'`+field+`' = ANY($%d)`, set)
	}
	for field, sub := range f.Like {
		add(` AND doc->>'`+field+`' ILIKE $%d`, "%"+escapeLike(sub)+"%")
	}

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errs.WrapMsg(err, "pg find", "kind", string(kind))
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errs.WrapMsg(err, "pg scan", "kind", string(kind))
		}
		doc, err := unmarshalDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PGStore) WriteAtomic(ctx context.Context, ops []WriteOp) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		for _, op := range ops {
			if err := applyPGOp(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyPGOp(ctx context.Context, tx pgx.Tx, op WriteOp) error {
	switch op.Op {
	case OpInsert:
		raw, err := json.Marshal(Normalize(op.Doc))
		if err != nil {
			return errs.WrapMsg(err, "pg marshal insert")
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO records (kind, id, doc) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`,
			string(op.Kind), op.ID, raw)
		if err != nil {
			return errs.WrapMsg(err, "pg insert", "kind", string(op.Kind), "id", op.ID)
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrConflict.WrapMsg("insert exists", "kind", string(op.Kind), "id", op.ID)
		}
		return nil

	case OpUpdate:
		var (
			sb   strings.Builder
			args []any
		)
		setRaw, err := json.Marshal(Normalize(op.Set))
		if err != nil {
			return errs.WrapMsg(err, "pg marshal set")
		}
		sb.WriteString(`UPDATE records SET doc = doc || $1::jsonb WHERE kind=$2 AND id=$3`)
		args = append(args, setRaw, string(op.Kind), op.ID)
		for field, want := range op.Expect {
			b, _ := json.Marshal(Normalize(want))
			args = append(args, string(b))
			sb.WriteString(fmt.Sprintf(` AND doc->'`+field+`' = $%d::jsonb`, len(args)))
		}

		tag, err := tx.Exec(ctx, sb.String(), args...)
		if err != nil {
			return errs.WrapMsg(err, "pg update", "kind", string(op.Kind), "id", op.ID)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM records WHERE kind=$1 AND id=$2)`,
				string(op.Kind), op.ID).Scan(&exists); err != nil {
				return errs.WrapMsg(err, "pg exists", "kind", string(op.Kind), "id", op.ID)
			}
			if !exists {
				return errs.ErrNotFound.WrapMsg("update target missing", "kind", string(op.Kind), "id", op.ID)
			}
			return errs.ErrConflict.WrapMsg("precondition failed", "kind", string(op.Kind), "id", op.ID)
		}
		return nil

	default:
		return errs.ErrInvalidArgument.WrapMsg("unknown op")
	}
}

func unmarshalDoc(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.WrapMsg(err, "pg unmarshal doc")
	}
	return doc, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
