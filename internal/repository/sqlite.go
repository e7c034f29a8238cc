package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"geocoding-etl/internal/models"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	quote:       quoteDouble,
	placeholder: func(int) string { return "?" },
	autoID:      "INTEGER PRIMARY KEY AUTOINCREMENT",
}

// Per-connection pragmas, applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

// SQLiteRepository implements Store using modernc.org/sqlite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database file at dsn with foreign keys enforced.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+strings.Join(sqlitePragmas, "&"))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin transaction")
	}
	return &sqliteTx{tx: tx}, nil
}

func (r *SQLiteRepository) CreateSchema(ctx context.Context) error {
	for _, stmt := range sqliteDialect.schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "sqlite: create schema")
		}
	}
	log.Info().Msg("created tables")
	return nil
}

func (r *SQLiteRepository) DropTable(ctx context.Context, table string) bool {
	if _, err := r.db.ExecContext(ctx, sqliteDialect.dropTable(table)); err != nil {
		log.Debug().Err(err).Str("table", table).Msg("drop table skipped")
		return false
	}
	log.Info().Str("table", table).Msg("dropped table")
	return true
}

func (r *SQLiteRepository) ListPoints(ctx context.Context, limit int) ([]models.PointView, error) {
	query, args := sqliteDialect.listPoints(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list points")
	}
	defer rows.Close() //nolint:errcheck

	var points []models.PointView
	for rows.Next() {
		var (
			lat, lng                                          sql.NullFloat64
			street, number, suburb, city, postal, uf, country sql.NullString
		)
		if err := rows.Scan(&lat, &lng, &street, &number, &suburb, &city, &postal, &uf, &country); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan point")
		}
		points = append(points, models.PointView{
			Latitude:    nullFloat(lat),
			Longitude:   nullFloat(lng),
			Street:      nullString(street),
			HouseNumber: nullString(number),
			Suburb:      nullString(suburb),
			City:        nullString(city),
			PostalCode:  nullString(postal),
			State:       nullString(uf),
			Country:     nullString(country),
		})
	}
	return points, eris.Wrap(rows.Err(), "sqlite: list points iterate")
}

func (r *SQLiteRepository) Close() {
	if err := r.db.Close(); err != nil {
		log.Warn().Err(err).Msg("sqlite: close")
	}
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) FindID(ctx context.Context, table, column string, value any) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, sqliteDialect.findID(table, column), value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "sqlite: find %s by %s", table, column)
	}
	return id, true, nil
}

func (t *sqliteTx) InsertUnique(ctx context.Context, table, uniqueColumn string, cols []models.Column) (int64, bool, error) {
	query, args := sqliteDialect.insertUnique(table, uniqueColumn, cols)

	var id int64
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "sqlite: insert into %s", table)
	}
	return id, true, nil
}

func (t *sqliteTx) Insert(ctx context.Context, table string, cols []models.Column) (int64, error) {
	query, args := sqliteDialect.insert(table, cols)

	var id int64
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert into %s", table)
	}
	return id, nil
}

func (t *sqliteTx) Commit(context.Context) error {
	return eris.Wrap(t.tx.Commit(), "sqlite: commit")
}

func (t *sqliteTx) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return eris.Wrap(err, "sqlite: rollback")
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
