package service

import (
	"context"

	"geocoding-etl/internal/geocode"
	"geocoding-etl/internal/models"

	"github.com/rotisserie/eris"
)

// ErrInvalidCoordinates is returned for a latitude or longitude out of range.
var ErrInvalidCoordinates = eris.New("invalid coordinates")

// ReverseGeoCodeService resolves a single coordinate pair on demand, without
// persisting it
type ReverseGeoCodeService struct {
	geocoder geocode.ReverseGeocoder
}

// NewReverseGeoCodeService creates a new reverse geo code service
func NewReverseGeoCodeService(geocoder geocode.ReverseGeocoder) *ReverseGeoCodeService {
	return &ReverseGeoCodeService{geocoder: geocoder}
}

// ReverseGeocode returns the address the loader would store for lat/lon
func (s *ReverseGeoCodeService) ReverseGeocode(ctx context.Context, lat, lon float64) (*models.AddressRecord, error) {
	if lat < -90 || lat > 90 {
		return nil, eris.Wrapf(ErrInvalidCoordinates, "service: invalid latitude: %f", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, eris.Wrapf(ErrInvalidCoordinates, "service: invalid longitude: %f", lon)
	}

	addr, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return nil, eris.Wrap(err, "service: failed to reverse geocode")
	}

	rec := toRecord(models.CoordinatePair{Latitude: lat, Longitude: lon}, addr)
	return &rec, nil
}
