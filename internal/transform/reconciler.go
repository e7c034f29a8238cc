// Package transform repairs the latitude/longitude line stream and turns it into
// coordinate pairs.
package transform

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"geocoding-etl/internal/extract"
	"geocoding-etl/internal/models"
	"geocoding-etl/internal/stage"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

const (
	latitudePrefix  = "La"
	longitudePrefix = "Lo"
)

var (
	// ErrInconsistentData means two adjacent lines share a prefix that is neither
	// latitude nor longitude, so alternation cannot be restored.
	ErrInconsistentData = eris.New("inconsistent data")

	// ErrInvalidCoordinate means a line's trailing token is not a number.
	ErrInvalidCoordinate = eris.New("invalid coordinate")
)

// PairReader is a single-pass stream of coordinate pairs. Next returns io.EOF
// once exhausted.
type PairReader interface {
	Next(ctx context.Context) (models.CoordinatePair, error)
}

// Reconciler removes spurious duplicate lines from a filtered coordinate stream
// and emits one pair per remaining latitude/longitude couple.
type Reconciler struct {
	src extract.LineReader

	lines   []models.RawLine
	pos     int
	prepped bool
}

// NewReconciler wraps a stream of tag-filtered lines.
func NewReconciler(src extract.LineReader) *Reconciler {
	return &Reconciler{src: src}
}

// Next returns the next pair. The first call reads the whole input because the
// repair needs to see every line before anything can be removed.
func (r *Reconciler) Next(ctx context.Context) (models.CoordinatePair, error) {
	if !r.prepped {
		lines, err := extract.ReadAll(ctx, r.src)
		if err != nil {
			return models.CoordinatePair{}, err
		}
		repaired, err := Repair(lines)
		if err != nil {
			return models.CoordinatePair{}, err
		}
		r.lines = repaired
		r.prepped = true
	}

	if r.pos+1 >= len(r.lines) {
		return models.CoordinatePair{}, io.EOF
	}

	latLine, lngLine := r.lines[r.pos], r.lines[r.pos+1]
	r.pos += 2

	lat, err := coordinate(latLine)
	if err != nil {
		return models.CoordinatePair{}, err
	}
	lng, err := coordinate(lngLine)
	if err != nil {
		return models.CoordinatePair{}, err
	}

	return models.CoordinatePair{Latitude: lat, Longitude: lng}, nil
}

// Repair restores latitude/longitude alternation.
//
// Adjacent duplicates are resolved asymmetrically: of two longitudes the later
// one is discarded, of two latitudes the earlier one. All discards are decided
// on the untouched sequence and applied afterwards. Each discard removes the
// first remaining line with the same text, which is not always the marked line
// itself when identical lines repeat.
func Repair(lines []models.RawLine) ([]models.RawLine, error) {
	marks := make(map[string]int)
	marked := 0

	for i := 1; i < len(lines); i++ {
		previous, current := lines[i-1], lines[i]
		prefix := subtype(current.Text)
		if subtype(previous.Text) != prefix {
			continue
		}

		switch prefix {
		case longitudePrefix:
			marks[current.Text]++
		case latitudePrefix:
			marks[previous.Text]++
		default:
			return nil, stage.Wrap(stage.Parse, current, ErrInconsistentData)
		}
		marked++
	}

	if marked == 0 {
		return lines, nil
	}

	log.Debug().Int("lines", len(lines)).Int("discarded", marked).Msg("repaired coordinate lines")

	out := make([]models.RawLine, 0, len(lines)-marked)
	for _, l := range lines {
		if marks[l.Text] > 0 {
			marks[l.Text]--
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// ReadAll drains r. It is meant for tests and small inputs.
func ReadAll(ctx context.Context, r PairReader) ([]models.CoordinatePair, error) {
	var out []models.CoordinatePair
	for {
		p, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, p)
	}
}

func subtype(text string) string {
	if len(text) < 2 {
		return text
	}
	return text[:2]
}

func coordinate(line models.RawLine) (float64, error) {
	fields := strings.Fields(line.Text)
	if len(fields) == 0 {
		return 0, stage.Wrap(stage.Parse, line, ErrInvalidCoordinate)
	}

	v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0, stage.Wrap(stage.Parse, line, eris.Wrap(ErrInvalidCoordinate, err.Error()))
	}
	return v, nil
}
