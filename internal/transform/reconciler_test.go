package transform

import (
	"context"
	"testing"

	"geocoding-etl/internal/extract"
	"geocoding-etl/internal/models"
	"geocoding-etl/internal/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairs(t *testing.T, texts ...string) ([]models.CoordinatePair, error) {
	t.Helper()
	src := extract.NewLineParser(extract.NewSliceSource("points.txt", texts...))
	return ReadAll(context.Background(), NewReconciler(src))
}

func texts(lines []models.RawLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestReconciler_Pairs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []models.CoordinatePair
	}{
		{
			name:     "empty input",
			input:    nil,
			expected: nil,
		},
		{
			name:  "alternating input",
			input: []string{"La -10.0", "Lo -20.0", "La -11.5", "Lo -21.5"},
			expected: []models.CoordinatePair{
				{Latitude: -10.0, Longitude: -20.0},
				{Latitude: -11.5, Longitude: -21.5},
			},
		},
		{
			name:  "duplicate longitude drops the later one",
			input: []string{"La -10.0", "Lo -20.0", "Lo -21.0", "La -11.0", "Lo -22.0"},
			expected: []models.CoordinatePair{
				{Latitude: -10.0, Longitude: -20.0},
				{Latitude: -11.0, Longitude: -22.0},
			},
		},
		{
			name:  "duplicate latitude drops the earlier one",
			input: []string{"La -10.0", "Lo -20.0", "La -11.0", "La -12.0", "Lo -22.0"},
			expected: []models.CoordinatePair{
				{Latitude: -10.0, Longitude: -20.0},
				{Latitude: -12.0, Longitude: -22.0},
			},
		},
		{
			name:  "run of three latitudes keeps the last",
			input: []string{"La 1", "La 2", "La 3", "Lo 4"},
			expected: []models.CoordinatePair{
				{Latitude: 3, Longitude: 4},
			},
		},
		{
			name:  "noise between lines is ignored",
			input: []string{"Latitude: -23.5", "Distance 10 km", "Longitude: -46.6", ""},
			expected: []models.CoordinatePair{
				{Latitude: -23.5, Longitude: -46.6},
			},
		},
		{
			name:  "unpaired trailing line is dropped",
			input: []string{"La 1", "Lo 2", "La 3"},
			expected: []models.CoordinatePair{
				{Latitude: 1, Longitude: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := pairs(t, tt.input...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRepair_DuplicateLongitude(t *testing.T) {
	lines := extract.NewSliceSource("f", "La -10.0", "Lo -20.0", "Lo -21.0", "La -11.0", "Lo -22.0")
	all, err := extract.ReadAll(context.Background(), lines)
	require.NoError(t, err)

	repaired, err := Repair(all)
	require.NoError(t, err)
	assert.Equal(t, []string{"La -10.0", "Lo -20.0", "La -11.0", "Lo -22.0"}, texts(repaired))
}

func TestRepair_RemovesFirstLineWithSameText(t *testing.T) {
	// The duplicate is the fourth line, but the identical first longitude is the
	// one that goes.
	all, err := extract.ReadAll(context.Background(),
		extract.NewSliceSource("f", "La 1", "Lo 2", "La 3", "Lo 2", "Lo 2", "La 5", "Lo 6"))
	require.NoError(t, err)

	repaired, err := Repair(all)
	require.NoError(t, err)
	assert.Equal(t, []string{"La 1", "La 3", "Lo 2", "Lo 2", "La 5", "Lo 6"}, texts(repaired))
	assert.Equal(t, 4, repaired[2].Number)
	assert.Equal(t, 5, repaired[3].Number)
}

func TestRepair_DecidesOnOriginalSequence(t *testing.T) {
	// Lo Lo Lo: both later longitudes are compared against their original
	// neighbour, so only the first survives.
	all, err := extract.ReadAll(context.Background(),
		extract.NewSliceSource("f", "La 0", "Lo 1", "Lo 2", "Lo 3", "La 4", "Lo 5"))
	require.NoError(t, err)

	repaired, err := Repair(all)
	require.NoError(t, err)
	assert.Equal(t, []string{"La 0", "Lo 1", "La 4", "Lo 5"}, texts(repaired))
}

func TestReconciler_InconsistentData(t *testing.T) {
	_, err := pairs(t, "La 1", "Lx 2", "Lx 3", "Lo 4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistentData)

	st, ok := stage.Of(err)
	assert.True(t, ok)
	assert.Equal(t, stage.Parse, st)
	assert.Contains(t, err.Error(), "points.txt:3")
}

func TestReconciler_SingleCharacterLines(t *testing.T) {
	_, err := pairs(t, "L", "L")
	assert.ErrorIs(t, err, ErrInconsistentData)
}

func TestReconciler_InvalidCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		input []string
	}{
		{name: "non numeric latitude", input: []string{"La abc", "Lo 1"}},
		{name: "non numeric longitude", input: []string{"La 1", "Lo 1,5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pairs(t, tt.input...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)

			st, ok := stage.Of(err)
			assert.True(t, ok)
			assert.Equal(t, stage.Parse, st)
		})
	}
}

func TestReconciler_ParseErrorAfterEarlierPairs(t *testing.T) {
	r := NewReconciler(extract.NewSliceSource("f", "La 1", "Lo 2", "La x", "Lo 4"))
	ctx := context.Background()

	p, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CoordinatePair{Latitude: 1, Longitude: 2}, p)

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
