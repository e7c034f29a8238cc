package repository

import (
	"context"
	"errors"
	"fmt"

	"geocoding-etl/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// PgxPool is the subset of *pgxpool.Pool used by the repository.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

var postgresDialect = dialect{
	quote:       func(ident string) string { return pgx.Identifier{ident}.Sanitize() },
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	autoID:      "SERIAL PRIMARY KEY",
}

// PostgresRepository implements Store for PostgreSQL
type PostgresRepository struct {
	db PgxPool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Begin opens a transaction
func (r *PostgresRepository) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "repository: begin transaction")
	}
	return &postgresTx{tx: tx}, nil
}

// CreateSchema creates the hierarchy and point tables if they do not exist
func (r *PostgresRepository) CreateSchema(ctx context.Context) error {
	for _, stmt := range postgresDialect.schema() {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "repository: create schema")
		}
	}
	log.Info().Msg("created tables")
	return nil
}

// DropTable drops a table, ignoring any failure such as a missing table
func (r *PostgresRepository) DropTable(ctx context.Context, table string) bool {
	if _, err := r.db.Exec(ctx, postgresDialect.dropTable(table)); err != nil {
		log.Debug().Err(err).Str("table", table).Msg("drop table skipped")
		return false
	}
	log.Info().Str("table", table).Msg("dropped table")
	return true
}

// ListPoints returns every point joined with its suburb, city, state and country
func (r *PostgresRepository) ListPoints(ctx context.Context, limit int) ([]models.PointView, error) {
	sql, args := postgresDialect.listPoints(limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "repository: failed to execute points query")
	}
	defer rows.Close()

	var points []models.PointView
	for rows.Next() {
		var p models.PointView
		err := rows.Scan(
			&p.Latitude,
			&p.Longitude,
			&p.Street,
			&p.HouseNumber,
			&p.Suburb,
			&p.City,
			&p.PostalCode,
			&p.State,
			&p.Country,
		)
		if err != nil {
			return nil, eris.Wrap(err, "repository: failed to scan point")
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repository: error iterating rows")
	}

	return points, nil
}

// Close closes the pool
func (r *PostgresRepository) Close() {
	r.db.Close()
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) FindID(ctx context.Context, table, column string, value any) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, postgresDialect.findID(table, column), value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "repository: find %s by %s", table, column)
	}
	return id, true, nil
}

func (t *postgresTx) InsertUnique(ctx context.Context, table, uniqueColumn string, cols []models.Column) (int64, bool, error) {
	sql, args := postgresDialect.insertUnique(table, uniqueColumn, cols)

	var id int64
	err := t.tx.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "repository: insert into %s", table)
	}
	return id, true, nil
}

func (t *postgresTx) Insert(ctx context.Context, table string, cols []models.Column) (int64, error) {
	sql, args := postgresDialect.insert(table, cols)

	var id int64
	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "repository: insert into %s", table)
	}
	return id, nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "repository: commit")
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return eris.Wrap(err, "repository: rollback")
	}
	return nil
}
