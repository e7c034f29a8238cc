package models

import "fmt"

// RawLine is a single line read from a coordinate file, kept with its origin so
// that parse failures can point at the offending input.
type RawLine struct {
	Text   string
	File   string
	Number int
}

func (l RawLine) String() string {
	return fmt.Sprintf("%s:%d %q", l.File, l.Number, l.Text)
}

// CoordinatePair is a repaired latitude/longitude tuple.
type CoordinatePair struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p CoordinatePair) String() string {
	return fmt.Sprintf("(%g, %g)", p.Latitude, p.Longitude)
}

// AddressRecord is one reverse-geocoding result. A nil field was not returned by
// the geocoder, which is different from an empty value.
type AddressRecord struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Street      *string `json:"street,omitempty"`
	HouseNumber *string `json:"house_number,omitempty"`
	Suburb      *string `json:"suburb,omitempty"`
	City        *string `json:"city,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// Empty reports whether no address field is present.
func (r AddressRecord) Empty() bool {
	return r.Street == nil && r.HouseNumber == nil && r.Suburb == nil && r.City == nil &&
		r.PostalCode == nil && r.State == nil && r.Country == nil
}

func (r AddressRecord) String() string {
	return fmt.Sprintf("{lat=%g lng=%g country=%s state=%s city=%s suburb=%s street=%s number=%s postal=%s}",
		r.Lat, r.Lng, deref(r.Country), deref(r.State), deref(r.City), deref(r.Suburb),
		deref(r.Street), deref(r.HouseNumber), deref(r.PostalCode))
}

// PointView is a persisted Point joined with all of its ancestors. Every column
// may be NULL because the read query uses LEFT JOINs.
type PointView struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Street      *string  `json:"street"`
	HouseNumber *string  `json:"house_number"`
	Suburb      *string  `json:"suburb"`
	City        *string  `json:"city"`
	PostalCode  *string  `json:"postal_code"`
	State       *string  `json:"state"`
	Country     *string  `json:"country"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 {
	return &f
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
