// Package display renders persisted points as a console table.
package display

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"geocoding-etl/internal/models"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EmptyMessage is printed instead of a table when there is nothing stored.
const EmptyMessage = "No data to show. Create the tables and load the data first."

const ellipsis = "..."

// Headers are the table columns, in PointView order.
var Headers = []string{
	"Latitude", "Longitude", "Street", "Number", "Suburb", "City", "Postal Code", "State", "Country",
}

// Options bound the rendered table. Zero means no limit. When a limit cuts the
// table, the first and last halves are kept around an ellipsis.
type Options struct {
	MaxRows    int
	MaxColumns int
}

// Render writes points to w.
func Render(w io.Writer, points []models.PointView, opts Options) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = Row(p)
	}

	header, rows := truncate(Headers, rows, opts)

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if len(rows) != len(points) || len(header) != len(Headers) {
		table.SetCaption(true, fmt.Sprintf("[%d rows x %d columns]", len(points), len(Headers)))
	}
	table.AppendBulk(rows)
	table.Render()
	return nil
}

// Row formats one point for display.
func Row(p models.PointView) []string {
	return []string{
		formatFloat(p.Latitude),
		formatFloat(p.Longitude),
		formatText(p.Street),
		formatText(p.HouseNumber),
		formatText(p.Suburb),
		formatText(p.City),
		formatText(p.PostalCode),
		formatText(p.State),
		formatText(p.Country),
	}
}

// FormatValue title-cases s, except that two-letter values such as state codes
// are upper-cased.
func FormatValue(s string) string {
	if utf8.RuneCountInString(s) == 2 {
		return cases.Upper(language.Und).String(s)
	}
	return cases.Title(language.Und).String(s)
}

func formatText(s *string) string {
	if s == nil {
		return ""
	}
	return FormatValue(*s)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func truncate(header []string, rows [][]string, opts Options) ([]string, [][]string) {
	if opts.MaxColumns > 0 && len(header) > opts.MaxColumns {
		keep := func(cells []string) []string {
			head, tail := split(opts.MaxColumns)
			out := make([]string, 0, head+tail+1)
			out = append(out, cells[:head]...)
			out = append(out, ellipsis)
			return append(out, cells[len(cells)-tail:]...)
		}
		header = keep(header)
		for i := range rows {
			rows[i] = keep(rows[i])
		}
	}

	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		head, tail := split(opts.MaxRows)
		gap := make([]string, len(header))
		for i := range gap {
			gap[i] = ellipsis
		}
		out := make([][]string, 0, head+tail+1)
		out = append(out, rows[:head]...)
		out = append(out, gap)
		rows = append(out, rows[len(rows)-tail:]...)
	}

	return header, rows
}

// split divides a limit into the leading and trailing share; the leading
// share gets the odd one.
func split(limit int) (int, int) {
	tail := limit / 2
	return limit - tail, tail
}
