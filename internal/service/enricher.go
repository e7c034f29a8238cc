package service

import (
	"context"
	"errors"
	"io"

	"geocoding-etl/internal/geocode"
	"geocoding-etl/internal/models"
	"geocoding-etl/internal/stage"
	"geocoding-etl/internal/transform"

	"golang.org/x/sync/errgroup"
)

// AddressReader is a single-pass stream of geocoded records. Next returns io.EOF
// once exhausted.
type AddressReader interface {
	Next(ctx context.Context) (models.AddressRecord, error)
}

type lookup struct {
	pair models.CoordinatePair
	addr *geocode.Address
	err  error
}

// Enricher reverse-geocodes every coordinate pair of its source, one lookup per
// pair, and yields the records in input order.
type Enricher struct {
	src      transform.PairReader
	geocoder geocode.ReverseGeocoder
	workers  int

	pending []lookup
	srcErr  error
	failed  bool
}

// NewEnricher creates an enricher. With workers above one, up to that many
// pairs are read ahead and looked up concurrently.
func NewEnricher(src transform.PairReader, geocoder geocode.ReverseGeocoder, workers int) *Enricher {
	if workers < 1 {
		workers = 1
	}
	return &Enricher{src: src, geocoder: geocoder, workers: workers}
}

// Next returns the record for the next pair. The first failure ends the stream
// and later calls return io.EOF without calling out.
func (e *Enricher) Next(ctx context.Context) (models.AddressRecord, error) {
	if e.failed {
		return models.AddressRecord{}, io.EOF
	}

	if len(e.pending) == 0 {
		if e.srcErr != nil {
			e.failed = true
			return models.AddressRecord{}, e.srcErr
		}
		if err := e.fill(ctx); err != nil {
			return models.AddressRecord{}, err
		}
		if len(e.pending) == 0 {
			e.failed = true
			return models.AddressRecord{}, e.srcErr
		}
	}

	next := e.pending[0]
	e.pending = e.pending[1:]

	if next.err != nil {
		e.failed = true
		e.pending = nil
		return models.AddressRecord{}, stage.Wrap(stage.Enrich, next.pair, next.err)
	}
	return toRecord(next.pair, next.addr), nil
}

// fill reads up to e.workers pairs and resolves them. A source error is kept
// until the lookups read before it have been handed out.
func (e *Enricher) fill(ctx context.Context) error {
	batch := make([]lookup, 0, e.workers)
	for len(batch) < e.workers {
		pair, err := e.src.Next(ctx)
		if err != nil {
			e.srcErr = err
			if !errors.Is(err, io.EOF) && len(batch) == 0 {
				e.failed = true
				return err
			}
			break
		}
		batch = append(batch, lookup{pair: pair})
	}

	if len(batch) == 1 {
		batch[0].addr, batch[0].err = e.geocoder.ReverseGeocode(ctx, batch[0].pair.Latitude, batch[0].pair.Longitude)
		e.pending = batch
		return nil
	}

	// Each lookup keeps its own error; records ahead of a failure are still emitted.
	var g errgroup.Group
	for i := range batch {
		g.Go(func() error {
			batch[i].addr, batch[i].err = e.geocoder.ReverseGeocode(ctx, batch[i].pair.Latitude, batch[i].pair.Longitude)
			return nil
		})
	}
	_ = g.Wait()

	e.pending = batch
	return nil
}

func toRecord(pair models.CoordinatePair, addr *geocode.Address) models.AddressRecord {
	rec := models.AddressRecord{Lat: pair.Latitude, Lng: pair.Longitude}
	if addr == nil {
		return rec
	}
	if addr.Lat != nil {
		rec.Lat = *addr.Lat
	}
	if addr.Lng != nil {
		rec.Lng = *addr.Lng
	}
	rec.Street = addr.Street
	rec.HouseNumber = addr.HouseNumber
	rec.Suburb = addr.Suburb
	rec.City = addr.City
	rec.PostalCode = addr.PostalCode
	rec.State = addr.State
	rec.Country = addr.Country
	return rec
}

// ReadAllRecords drains r.
func ReadAllRecords(ctx context.Context, r AddressReader) ([]models.AddressRecord, error) {
	var out []models.AddressRecord
	for {
		rec, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, rec)
	}
}
