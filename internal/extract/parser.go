package extract

import (
	"context"
	"errors"
	"io"

	"geocoding-etl/internal/models"
)

// CoordinateTag is the first character shared by latitude and longitude lines.
const CoordinateTag = 'L'

// TagFilter passes through only the lines starting with a tag character and
// silently drops the rest (distance annotations, blank lines and other noise).
type TagFilter struct {
	src LineReader
	tag byte
}

// NewLineParser filters src down to coordinate lines.
func NewLineParser(src LineReader) *TagFilter {
	return &TagFilter{src: src, tag: CoordinateTag}
}

func (f *TagFilter) Next(ctx context.Context) (models.RawLine, error) {
	for {
		line, err := f.src.Next(ctx)
		if err != nil {
			return models.RawLine{}, err
		}
		if len(line.Text) > 0 && line.Text[0] == f.tag {
			return line, nil
		}
	}
}

// ReadAll drains r. It is meant for tests and small inputs.
func ReadAll(ctx context.Context, r LineReader) ([]models.RawLine, error) {
	var out []models.RawLine
	for {
		line, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, line)
	}
}
