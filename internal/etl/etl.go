// Package etl runs the importer steps against one store: dropping and creating
// the tables, loading the coordinate files and showing what was stored.
package etl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"geocoding-etl/internal/display"
	"geocoding-etl/internal/extract"
	"geocoding-etl/internal/geocode"
	"geocoding-etl/internal/models"
	"geocoding-etl/internal/repository"
	"geocoding-etl/internal/service"
	"geocoding-etl/internal/transform"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Steps selects what a run does. They execute in field order.
type Steps struct {
	DropTables   bool
	CreateTables bool
	LoadData     bool
	Visualize    bool
}

// Options configures a run.
type Options struct {
	Steps
	// Path is the directory holding the coordinate files.
	Path string
	// Database names the target in the drop confirmation.
	Database    string
	CommitEvery int
	Workers     int
	AssumeYes   bool
	Display     display.Options
}

// Report summarises a run.
type Report struct {
	RunID    string            `json:"run_id"`
	Dropped  []string          `json:"dropped,omitempty"`
	Created  bool              `json:"created"`
	Load     service.LoadStats `json:"load"`
	Shown    int               `json:"shown"`
	Duration time.Duration     `json:"duration"`
}

// Runner executes importer runs.
type Runner struct {
	store    repository.Store
	geocoder geocode.ReverseGeocoder
	fs       afero.Fs
	in       io.Reader
	out      io.Writer
}

// NewRunner creates a runner. in answers the drop confirmation and out
// receives the prompt and the table.
func NewRunner(store repository.Store, geocoder geocode.ReverseGeocoder, fs afero.Fs, in io.Reader, out io.Writer) *Runner {
	return &Runner{store: store, geocoder: geocoder, fs: fs, in: in, out: out}
}

// Run executes the selected steps. The first failing step ends the run.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", report.RunID).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()

	defer func() {
		report.Duration = time.Since(start)
	}()

	if opts.DropTables {
		ok, err := r.confirm(opts)
		if err != nil {
			return report, err
		}
		if ok {
			report.Dropped = r.DropTables(ctx)
		} else {
			logger.Info().Msg("drop cancelled")
		}
	}

	if opts.CreateTables {
		if err := r.store.CreateSchema(ctx); err != nil {
			return report, err
		}
		report.Created = true
	}

	if opts.LoadData {
		stats, err := r.Load(ctx, opts.Path, opts.CommitEvery, opts.Workers)
		report.Load = stats
		if err != nil {
			return report, err
		}
	}

	if opts.Visualize {
		n, err := r.Show(ctx, opts.Display)
		report.Shown = n
		if err != nil {
			return report, err
		}
	}

	logger.Info().
		Int("records", report.Load.Records).
		Int("points", report.Load.Points).
		Int("dropped_records", report.Load.Dropped).
		Int("commits", report.Load.Commits).
		Dur("duration", time.Since(start)).
		Msg("run finished")
	return report, nil
}

// DropTables drops every table, children first, and returns the ones that
// were actually dropped.
func (r *Runner) DropTables(ctx context.Context) []string {
	var dropped []string
	for _, table := range models.Tables {
		if r.store.DropTable(ctx, table) {
			dropped = append(dropped, table)
		}
	}
	return dropped
}

// Load streams the files under path through parsing, repair and reverse
// geocoding into the store.
func (r *Runner) Load(ctx context.Context, path string, commitEvery, workers int) (service.LoadStats, error) {
	logger := loggerFrom(ctx)

	files, err := extract.NewFileSource(r.fs, path)
	if err != nil {
		return service.LoadStats{}, err
	}
	defer files.Close() //nolint:errcheck

	logger.Info().Str("path", path).Int("files", len(files.Files())).Msg("loading coordinate files")

	pairs := transform.NewReconciler(extract.NewLineParser(files))
	records := service.NewEnricher(pairs, r.geocoder, workers)
	loader := service.NewLoader(r.store, commitEvery)

	stats, err := loader.Load(ctx, records)
	if err != nil {
		logger.Error().Err(err).Int("points", stats.Points).Msg("load aborted")
		return stats, err
	}
	logger.Info().Int("points", stats.Points).Int("commits", stats.Commits).Msg("load finished")
	return stats, nil
}

// Show renders every stored point and returns how many there were.
func (r *Runner) Show(ctx context.Context, opts display.Options) (int, error) {
	points, err := service.NewPointService(r.store).ListPoints(ctx, 0)
	if err != nil {
		return 0, err
	}
	if err := display.Render(r.out, points, opts); err != nil {
		return len(points), eris.Wrap(err, "etl: render points")
	}
	return len(points), nil
}

func (r *Runner) confirm(opts Options) (bool, error) {
	if opts.AssumeYes {
		return true, nil
	}
	if _, err := io.WriteString(r.out, "Drop all tables of '"+opts.Database+"'? [y/N]: "); err != nil {
		return false, eris.Wrap(err, "etl: write prompt")
	}

	answer, err := bufio.NewReader(r.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, eris.Wrap(err, "etl: read confirmation")
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// loggerFrom returns the run logger stored in ctx, or the global one.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
