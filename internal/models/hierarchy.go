package models

// Level describes one lookup table of the administrative hierarchy.
type Level struct {
	Table        string
	UniqueColumn string
	// ParentColumn is empty for the root level.
	ParentColumn string
}

var (
	CountryLevel = Level{Table: "Country", UniqueColumn: "countryName"}
	StateLevel   = Level{Table: "State", UniqueColumn: "stateUF", ParentColumn: "countryID"}
	CityLevel    = Level{Table: "City", UniqueColumn: "cityName", ParentColumn: "stateID"}
	SuburbLevel  = Level{Table: "Suburb", UniqueColumn: "suburbName", ParentColumn: "cityID"}
)

// PointTable is the leaf table name.
const PointTable = "Point"

// Tables lists every table in drop order (children first).
var Tables = []string{PointTable, SuburbLevel.Table, CityLevel.Table, StateLevel.Table, CountryLevel.Table}

// Column is one column/value pair of a write statement.
type Column struct {
	Name  string
	Value any
}

// PointRow is the sparse set of values written for a Point. Nil fields are
// left out of the INSERT instead of being written as NULL.
type PointRow struct {
	Lat         *float64
	Lng         *float64
	Street      *string
	HouseNumber *string
	PostalCode  *string
	SuburbID    int64
}

// Empty reports whether none of the optional Point values is present.
func (p PointRow) Empty() bool {
	return p.Lat == nil && p.Lng == nil && p.Street == nil && p.HouseNumber == nil && p.PostalCode == nil
}

// Columns returns the present values in schema order, followed by suburbID.
func (p PointRow) Columns() []Column {
	cols := make([]Column, 0, 6)
	if p.Lat != nil {
		cols = append(cols, Column{Name: "pointLAT", Value: *p.Lat})
	}
	if p.Lng != nil {
		cols = append(cols, Column{Name: "pointLNG", Value: *p.Lng})
	}
	if p.Street != nil {
		cols = append(cols, Column{Name: "pointStreetName", Value: *p.Street})
	}
	if p.HouseNumber != nil {
		cols = append(cols, Column{Name: "pointHouseNumber", Value: *p.HouseNumber})
	}
	if p.PostalCode != nil {
		cols = append(cols, Column{Name: "pointPostalCode", Value: *p.PostalCode})
	}
	return append(cols, Column{Name: "suburbID", Value: p.SuburbID})
}
