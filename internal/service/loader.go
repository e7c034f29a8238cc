package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"geocoding-etl/internal/models"
	"geocoding-etl/internal/repository"
	"geocoding-etl/internal/stage"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// DefaultCommitEvery is the number of inserted points between two commits.
const DefaultCommitEvery = 50

// TxBeginner opens units of work on the relational store.
type TxBeginner interface {
	Begin(ctx context.Context) (repository.Tx, error)
}

// LoadStats summarises one load.
type LoadStats struct {
	Records int `json:"records"`
	Points  int `json:"points"`
	Dropped int `json:"dropped"`
	Commits int `json:"commits"`
}

// Loader writes address records into the Country, State, City, Suburb and
// Point tables, reusing existing hierarchy rows by their lower-cased name.
type Loader struct {
	db          TxBeginner
	commitEvery int

	mu      sync.Mutex
	tx      repository.Tx
	pending int
	stats   LoadStats
}

// NewLoader creates a loader committing after every commitEvery inserted
// points. Values below one fall back to DefaultCommitEvery.
func NewLoader(db TxBeginner, commitEvery int) *Loader {
	if commitEvery < 1 {
		commitEvery = DefaultCommitEvery
	}
	return &Loader{db: db, commitEvery: commitEvery}
}

// Store persists one record. It reports false when the record lacks part of
// the hierarchy or has nothing to store on the point, in which case it is
// dropped without error. Hierarchy rows created before the chain broke are
// kept.
func (l *Loader) Store(ctx context.Context, rec models.AddressRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Records++

	stored, err := l.store(ctx, rec)
	if err != nil {
		return false, stage.Wrap(stage.Persist, rec, err)
	}
	if !stored {
		l.stats.Dropped++
		log.Debug().Stringer("record", rec).Msg("record dropped, incomplete hierarchy")
	}
	return stored, nil
}

func (l *Loader) store(ctx context.Context, rec models.AddressRecord) (bool, error) {
	if rec.Country == nil {
		return false, nil
	}
	tx, err := l.begin(ctx)
	if err != nil {
		return false, err
	}

	countryID, err := resolveOrCreate(ctx, tx, models.CountryLevel, *rec.Country, 0)
	if err != nil {
		return false, err
	}
	if rec.State == nil {
		return false, nil
	}
	stateID, err := resolveOrCreate(ctx, tx, models.StateLevel, *rec.State, countryID)
	if err != nil {
		return false, err
	}
	if rec.City == nil {
		return false, nil
	}
	cityID, err := resolveOrCreate(ctx, tx, models.CityLevel, *rec.City, stateID)
	if err != nil {
		return false, err
	}
	if rec.Suburb == nil {
		return false, nil
	}
	suburbID, err := resolveOrCreate(ctx, tx, models.SuburbLevel, *rec.Suburb, cityID)
	if err != nil {
		return false, err
	}

	row := models.PointRow{
		Lat:         models.Float64Ptr(rec.Lat),
		Lng:         models.Float64Ptr(rec.Lng),
		Street:      lower(rec.Street),
		HouseNumber: lower(rec.HouseNumber),
		PostalCode:  lower(rec.PostalCode),
		SuburbID:    suburbID,
	}
	if row.Empty() {
		return false, nil
	}

	id, err := tx.Insert(ctx, models.PointTable, row.Columns())
	if err != nil {
		return false, err
	}
	l.stats.Points++
	l.pending++
	log.Debug().Int64("id", id).Int64("suburb_id", suburbID).Msg("inserted point")

	if l.pending >= l.commitEvery {
		if err := l.commit(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Load stores every record of src. A clean end of input commits whatever is
// still pending; any failure rolls it back.
func (l *Loader) Load(ctx context.Context, src AddressReader) (LoadStats, error) {
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.Abort(ctx)
			return l.Stats(), err
		}
		if _, err := l.Store(ctx, rec); err != nil {
			l.Abort(ctx)
			return l.Stats(), err
		}
	}
	if err := l.Close(ctx); err != nil {
		return l.Stats(), err
	}
	return l.Stats(), nil
}

// Close commits the open transaction, if any.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tx == nil {
		return nil
	}
	return stage.Wrap(stage.Persist, nil, l.commit(ctx))
}

// Abort rolls back everything written since the last commit.
func (l *Loader) Abort(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tx == nil {
		return
	}
	if err := l.tx.Rollback(ctx); err != nil {
		log.Warn().Err(err).Msg("rollback failed")
	}
	log.Info().Int("points", l.pending).Msg("rolled back uncommitted points")
	l.tx = nil
	l.pending = 0
}

// Stats returns the counters so far.
func (l *Loader) Stats() LoadStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loader) begin(ctx context.Context) (repository.Tx, error) {
	if l.tx != nil {
		return l.tx, nil
	}
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	l.tx = tx
	return tx, nil
}

func (l *Loader) commit(ctx context.Context) error {
	if err := l.tx.Commit(ctx); err != nil {
		return err
	}
	l.stats.Commits++
	log.Debug().Int("points", l.pending).Msg("committed")
	l.tx = nil
	l.pending = 0
	return nil
}

// resolveOrCreate returns the id of the level row named value, inserting it
// under parentID when missing.
func resolveOrCreate(ctx context.Context, tx repository.Tx, level models.Level, value string, parentID int64) (int64, error) {
	value = strings.ToLower(value)

	id, found, err := tx.FindID(ctx, level.Table, level.UniqueColumn, value)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	cols := []models.Column{{Name: level.UniqueColumn, Value: value}}
	if level.ParentColumn != "" {
		cols = append(cols, models.Column{Name: level.ParentColumn, Value: parentID})
	}

	id, inserted, err := tx.InsertUnique(ctx, level.Table, level.UniqueColumn, cols)
	if err != nil {
		return 0, err
	}
	if inserted {
		return id, nil
	}

	// Another writer created the row between the lookup and the insert.
	id, found, err = tx.FindID(ctx, level.Table, level.UniqueColumn, value)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, eris.Errorf("service: %s %q neither inserted nor found", level.Table, value)
	}
	return id, nil
}

func lower(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(*s)
	return &v
}
