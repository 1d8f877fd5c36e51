package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wavelane/wavelane/internal/tracing"
)

// usageEventsTable is the backing table for usage events.
const usageEventsTable = "usage_events"

// PostgresStore implements Store on top of PostgreSQL. Appends rely on
// the database for serialization; queries see whatever snapshot the
// connection's isolation level provides, which is sufficient for the
// recompute-per-query aggregation model.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a Postgres-backed event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// Append persists a new record, assigning its ID and CreatedAt.
func (s *PostgresStore) Append(ctx context.Context, draft Draft) (rec *Record, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, usageEventsTable, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	rec = &Record{
		ID:        uuid.New().String(),
		OwnerID:   draft.OwnerID,
		Name:      draft.Name,
		Category:  draft.Category,
		Value:     draft.Value,
		Metadata:  draft.Metadata,
		CreatedAt: s.now().UTC(),
	}

	var metadata []byte
	if rec.Metadata != nil {
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return nil, &StoreError{Op: "append", Err: fmt.Errorf("encode metadata: %w", err)}
		}
	}

	var value sql.NullFloat64
	if rec.Value != nil {
		value = sql.NullFloat64{Float64: *rec.Value, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, owner_id, name, category, value, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.OwnerID, rec.Name, rec.Category, value, metadata, rec.CreatedAt,
	)
	if err != nil {
		return nil, &StoreError{Op: "append", Err: err}
	}

	return rec, nil
}

// QueryRange returns all records for the owner with CreatedAt >= since,
// newest first. Callers must not rely on the order.
func (s *PostgresStore) QueryRange(ctx context.Context, ownerID string, since time.Time) (recs []*Record, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, usageEventsTable, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, category, value, metadata, created_at
		 FROM usage_events
		 WHERE owner_id = $1 AND created_at >= $2
		 ORDER BY created_at DESC`,
		ownerID, since,
	)
	if err != nil {
		return nil, &StoreError{Op: "query_range", Err: err}
	}
	defer rows.Close()

	recs = []*Record{}
	for rows.Next() {
		var (
			rec      Record
			value    sql.NullFloat64
			metadata []byte
		)
		if err = rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Category, &value, &metadata, &rec.CreatedAt); err != nil {
			return nil, &StoreError{Op: "query_range", Err: err}
		}
		if value.Valid {
			v := value.Float64
			rec.Value = &v
		}
		if len(metadata) > 0 {
			if err = json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, &StoreError{Op: "query_range", Err: fmt.Errorf("decode metadata for %s: %w", rec.ID, err)}
			}
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		recs = append(recs, &rec)
	}
	if err = rows.Err(); err != nil {
		return nil, &StoreError{Op: "query_range", Err: err}
	}

	return recs, nil
}
