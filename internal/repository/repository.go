package repository

import (
	"context"
	"strings"

	"geocoding-etl/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Tx is a unit of work against the store. Nothing written through it is durable
// until Commit.
type Tx interface {
	// FindID returns the id of the row of table whose column equals value.
	FindID(ctx context.Context, table, column string, value any) (int64, bool, error)
	// InsertUnique inserts cols unless a row with the same uniqueColumn value
	// exists. inserted is false when the insert was skipped because of a conflict.
	InsertUnique(ctx context.Context, table, uniqueColumn string, cols []models.Column) (id int64, inserted bool, err error)
	// Insert writes cols into table and returns the new id.
	Insert(ctx context.Context, table string, cols []models.Column) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is a relational backend holding the address hierarchy.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	CreateSchema(ctx context.Context) error
	// DropTable drops table, reporting whether it did. Failures are ignored.
	DropTable(ctx context.Context, table string) bool
	ListPoints(ctx context.Context, limit int) ([]models.PointView, error)
	Close()
}

// Open connects to the backend selected by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres, "pgx":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, eris.Wrap(err, "repository: connect to postgres")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "repository: ping postgres")
		}
		return NewPostgresRepository(pool), nil
	case DriverSQLite:
		return NewSQLiteRepository(dsn)
	default:
		return nil, eris.Errorf("repository: unsupported driver %q", driver)
	}
}
