package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Gateway exposes the three row-store primitives the intake pipeline needs,
// over loosely structured column maps. Identities are minted here, at the
// storage boundary, never by callers.
type Gateway struct {
	DB *sql.DB

	// NewID mints row identities; overridable in tests.
	NewID func() string
	// NowUTC stamps created_at; overridable in tests.
	NowUTC func() time.Time
}

func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{DB: db, NewID: uuid.NewString, NowUTC: func() time.Time { return time.Now().UTC() }}
}

// InsertOne writes a single row and returns it with its assigned id. A report
// of success with nothing written is treated as failure, not silently accepted.
func (g *Gateway) InsertOne(ctx context.Context, table string, row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row)+2)
	for k, v := range row {
		out[k] = v
	}
	if _, ok := out["id"]; !ok {
		out["id"] = g.NewID()
	}
	if _, ok := out["created_at"]; !ok {
		out["created_at"] = g.NowUTC().Format(time.RFC3339)
	}

	query, args, err := sq.Insert(table).SetMap(out).ToSql()
	if err != nil {
		return nil, fmt.Errorf("insert to %s: %w", table, err)
	}
	res, err := g.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert to %s failed: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("insert to %s failed: no data returned", table)
	}
	return out, nil
}

// InsertMany writes rows in one multi-VALUES statement. Empty input is a no-op.
// Every row must carry the same column set. A row count short of the batch is
// an error: bulk inserts get the same emptiness check as single inserts.
func (g *Gateway) InsertMany(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	b := sq.Insert(table).Columns(cols...)
	for _, row := range rows {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = row[c]
		}
		b = b.Values(vals...)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("insert many to %s: %w", table, err)
	}
	res, err := g.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert many to %s failed: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != int64(len(rows)) {
		return fmt.Errorf("insert many to %s failed: wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}

// UpdateByID patches the row with the given id.
func (g *Gateway) UpdateByID(ctx context.Context, table, id string, patch map[string]any) error {
	query, args, err := sq.Update(table).SetMap(patch).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if _, err := g.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s failed: %w", table, err)
	}
	return nil
}
