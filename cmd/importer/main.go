package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"geocoding-etl/internal/config"
	"geocoding-etl/internal/display"
	"geocoding-etl/internal/etl"
	"geocoding-etl/internal/geocode"
	"geocoding-etl/internal/repository"
	"geocoding-etl/internal/stage"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps each command-line flag onto its configuration key.
var flagKeys = map[string]string{
	"path":          "input.path",
	"driver":        "database.driver",
	"host":          "database.host",
	"port":          "database.port",
	"user":          "database.user",
	"password":      "database.password",
	"database":      "database.name",
	"dsn":           "database.dsn",
	"drop-tables":   "run.drop_tables",
	"create-tables": "run.create_tables",
	"load-data":     "run.load_data",
	"visualize":     "run.visualize",
	"commit":        "run.commit",
	"yes":           "run.yes",
	"max-rows":      "display.max_rows",
	"max-columns":   "display.max_columns",
	"geocoder-url":  "geocoder.base_url",
	"rate-limit":    "geocoder.rate_limit",
	"workers":       "geocoder.workers",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	v := config.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "importer",
		Short: "Load coordinate files into the address hierarchy",
		Long: `importer reads the Latitude/Longitude lines of every file in a directory,
repairs duplicated lines, reverse geocodes each coordinate pair through
Nominatim and stores the result as Country, State, City, Suburb and Point rows.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Log); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, in, out)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml or ./config.yaml)")
	flags.StringP("path", "p", "data_points", "directory holding the coordinate files")
	flags.String("driver", repository.DriverPostgres, "database driver: postgres or sqlite")
	flags.StringP("host", "H", "localhost", "database host")
	flags.Int("port", 5432, "database port")
	flags.StringP("user", "U", "root", "database user")
	flags.StringP("password", "P", "toor", "database password")
	flags.StringP("database", "D", "etl", "database name, or file path for sqlite")
	flags.String("dsn", "", "full connection string, overrides the individual settings")
	flags.Bool("drop-tables", false, "drop every table before anything else")
	flags.Bool("create-tables", false, "create the tables if they do not exist")
	flags.Bool("load-data", false, "run the import")
	flags.Bool("visualize", true, "print the stored points")
	flags.IntP("commit", "c", 50, "number of inserted points between commits")
	flags.BoolP("yes", "y", false, "drop tables without asking")
	flags.Int("max-rows", 0, "rows to print, 0 for all")
	flags.Int("max-columns", 0, "columns to print, 0 for all")
	flags.String("geocoder-url", geocode.DefaultBaseURL, "Nominatim base URL")
	flags.Float64("rate-limit", 1, "geocoding requests per second, 0 for unlimited")
	flags.Int("workers", 1, "concurrent geocoding lookups")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "json", "log format: json or console")

	bindFlags(v, flags)
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("database", cfg.Database.Redacted()).
		Msg("connecting to database")

	store, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.ConnString())
	if err != nil {
		return eris.Wrap(err, "importer: open store")
	}
	defer func() {
		log.Info().Msg("closing connection")
		store.Close()
	}()

	client := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
		geocode.WithLanguage(cfg.Geocoder.Language),
		geocode.WithRateLimit(cfg.Geocoder.RateLimit),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocoder.Timeout}),
	)
	geocoder := geocode.NewCachedGeocoder(client, cfg.Geocoder.CacheTTL)

	runner := etl.NewRunner(store, geocoder, afero.NewOsFs(), in, out)
	report, err := runner.Run(ctx, etl.Options{
		Steps: etl.Steps{
			DropTables:   cfg.Run.DropTables,
			CreateTables: cfg.Run.CreateTables,
			LoadData:     cfg.Run.LoadData,
			Visualize:    cfg.Run.Visualize,
		},
		Path:        cfg.Input.Path,
		Database:    cfg.Database.Name,
		CommitEvery: cfg.Run.CommitEvery,
		Workers:     cfg.Geocoder.Workers,
		AssumeYes:   cfg.Run.AssumeYes,
		Display: display.Options{
			MaxRows:    cfg.Display.MaxRows,
			MaxColumns: cfg.Display.MaxColumns,
		},
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("cached_lookups", geocoder.Len()).
		Msg("importer finished")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		event := log.Error().Err(err)
		if st, ok := stage.Of(err); ok {
			event = event.Str("stage", string(st))
		}
		event.Msg("importer failed")
		stop()
		os.Exit(1)
	}
}
