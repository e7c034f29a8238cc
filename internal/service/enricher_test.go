package service

import (
	"context"
	"io"
	"testing"

	"geocoding-etl/internal/geocode"
	"geocoding-etl/internal/models"
	"geocoding-etl/internal/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pairSlice struct {
	pairs []models.CoordinatePair
	err   error
}

func (p *pairSlice) Next(context.Context) (models.CoordinatePair, error) {
	if len(p.pairs) == 0 {
		if p.err != nil {
			return models.CoordinatePair{}, p.err
		}
		return models.CoordinatePair{}, io.EOF
	}
	next := p.pairs[0]
	p.pairs = p.pairs[1:]
	return next, nil
}

func pairs(coords ...float64) []models.CoordinatePair {
	var out []models.CoordinatePair
	for i := 0; i+1 < len(coords); i += 2 {
		out = append(out, models.CoordinatePair{Latitude: coords[i], Longitude: coords[i+1]})
	}
	return out
}

func TestEnricher_Sequential(t *testing.T) {
	geocoder := new(MockGeocoder)
	geocoder.On("ReverseGeocode", mock.Anything, 1.0, 2.0).Return(&geocode.Address{
		Lat:     models.Float64Ptr(1.5),
		Lng:     models.Float64Ptr(2.5),
		Street:  models.StringPtr("Rua A"),
		Country: models.StringPtr("Brasil"),
	}, nil).Once()
	geocoder.On("ReverseGeocode", mock.Anything, 3.0, 4.0).Return(&geocode.Address{}, nil).Once()

	e := NewEnricher(&pairSlice{pairs: pairs(1, 2, 3, 4)}, geocoder, 1)

	records, err := ReadAllRecords(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.AddressRecord{
		Lat:     1.5,
		Lng:     2.5,
		Street:  models.StringPtr("Rua A"),
		Country: models.StringPtr("Brasil"),
	}, records[0])
	assert.Equal(t, models.AddressRecord{Lat: 3, Lng: 4}, records[1], "provider without coordinates keeps the pair's")

	geocoder.AssertExpectations(t)
}

func TestEnricher_EmptySource(t *testing.T) {
	geocoder := new(MockGeocoder)
	e := NewEnricher(&pairSlice{}, geocoder, 4)

	_, err := e.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	geocoder.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnricher_LookupFailureStopsStream(t *testing.T) {
	geocoder := new(MockGeocoder)
	geocoder.On("ReverseGeocode", mock.Anything, 1.0, 2.0).Return(&geocode.Address{}, nil).Once()
	geocoder.On("ReverseGeocode", mock.Anything, 3.0, 4.0).Return(nil, geocode.ErrLookup).Once()

	e := NewEnricher(&pairSlice{pairs: pairs(1, 2, 3, 4, 5, 6)}, geocoder, 1)
	ctx := context.Background()

	_, err := e.Next(ctx)
	require.NoError(t, err)

	_, err = e.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, geocode.ErrLookup)
	st, ok := stage.Of(err)
	require.True(t, ok)
	assert.Equal(t, stage.Enrich, st)
	assert.Contains(t, err.Error(), "(3, 4)")

	_, err = e.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	geocoder.AssertExpectations(t)
	geocoder.AssertNotCalled(t, "ReverseGeocode", mock.Anything, 5.0, 6.0)
}

func TestEnricher_SourceError(t *testing.T) {
	geocoder := new(MockGeocoder)
	geocoder.On("ReverseGeocode", mock.Anything, mock.Anything, mock.Anything).Return(&geocode.Address{}, nil)

	srcErr := stage.Wrap(stage.Parse, nil, assert.AnError)
	e := NewEnricher(&pairSlice{pairs: pairs(1, 2), err: srcErr}, geocoder, 3)

	records, err := ReadAllRecords(context.Background(), e)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, records, 1, "records read before the failure are still emitted")
}

func TestEnricher_WorkersKeepOrder(t *testing.T) {
	geocoder := new(MockGeocoder)
	for i := 0; i < 7; i++ {
		lat := float64(i)
		geocoder.On("ReverseGeocode", mock.Anything, lat, -lat).
			Return(&geocode.Address{HouseNumber: models.StringPtr(string(rune('a' + i)))}, nil).Once()
	}

	var coords []float64
	for i := 0; i < 7; i++ {
		coords = append(coords, float64(i), -float64(i))
	}

	e := NewEnricher(&pairSlice{pairs: pairs(coords...)}, geocoder, 3)
	records, err := ReadAllRecords(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, records, 7)

	for i, rec := range records {
		assert.Equal(t, float64(i), rec.Lat)
		assert.Equal(t, string(rune('a'+i)), *rec.HouseNumber)
	}
	geocoder.AssertExpectations(t)
}

func TestEnricher_WorkersEmitBeforeFailure(t *testing.T) {
	geocoder := new(MockGeocoder)
	geocoder.On("ReverseGeocode", mock.Anything, 1.0, 1.0).Return(&geocode.Address{}, nil)
	geocoder.On("ReverseGeocode", mock.Anything, 2.0, 2.0).Return(nil, geocode.ErrLookup)
	geocoder.On("ReverseGeocode", mock.Anything, 3.0, 3.0).Return(&geocode.Address{}, nil)

	e := NewEnricher(&pairSlice{pairs: pairs(1, 1, 2, 2, 3, 3)}, geocoder, 3)

	records, err := ReadAllRecords(context.Background(), e)
	assert.ErrorIs(t, err, geocode.ErrLookup)
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].Lat)
}
