package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// runRow is the postgres table layout. The full RunState is kept as jsonb;
// the scalar columns exist for ordering and filtering.
type runRow struct {
	bun.BaseModel `bun:"table:reqcheck_runs,alias:r"`

	ID          string    `bun:"id,pk"`
	Pipeline    string    `bun:"pipeline,notnull"`
	Status      string    `bun:"status,notnull"`
	StartedAt   time.Time `bun:"started_at,notnull"`
	CompletedAt time.Time `bun:"completed_at,nullzero"`
	Error       string    `bun:"error"`
	Data        []byte    `bun:"data,type:jsonb,notnull"`
}

// PostgresStore implements state storage on PostgreSQL via bun.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore connects to dsn and creates the runs table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres state driver requires a DSN in state.path")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*runRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateIndex().
		Model((*runRow)(nil)).
		Index("idx_reqcheck_runs_started_at").
		Column("started_at").
		IfNotExists().
		Exec(ctx)
	return err
}

// SaveRun upserts a run state
func (s *PostgresStore) SaveRun(ctx context.Context, run *RunState) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	row := &runRow{
		ID:          run.ID,
		Pipeline:    run.Pipeline,
		Status:      run.Status,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
		Data:        data,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("completed_at = EXCLUDED.completed_at").
		Set("error = EXCLUDED.error").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

// GetRun retrieves a run state
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*RunState, error) {
	row := new(runRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeRun(row.Data)
}

// ListRuns lists recent runs
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*RunState, error) {
	var rows []runRow
	q := s.db.NewSelect().Model(&rows).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	runs := make([]*RunState, 0, len(rows))
	for i := range rows {
		run, err := decodeRun(rows[i].Data)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteRun deletes a run
func (s *PostgresStore) DeleteRun(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*runRow)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
