package config

import (
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"geocoding-etl/internal/repository"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Database DatabaseConfig `mapstructure:"database"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Run      RunConfig      `mapstructure:"run"`
	Display  DisplayConfig  `mapstructure:"display"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// InputConfig locates the coordinate files.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// DSN overrides every other connection setting when set.
	DSN string `mapstructure:"dsn"`
}

// GeocoderConfig configures the Nominatim client.
type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Language  string        `mapstructure:"language"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Workers   int           `mapstructure:"workers"`
}

// RunConfig selects the steps of an importer run.
type RunConfig struct {
	DropTables   bool `mapstructure:"drop_tables"`
	CreateTables bool `mapstructure:"create_tables"`
	LoadData     bool `mapstructure:"load_data"`
	Visualize    bool `mapstructure:"visualize"`
	CommitEvery  int  `mapstructure:"commit"`
	// AssumeYes skips the confirmation before tables are dropped.
	AssumeYes bool `mapstructure:"yes"`
}

// DisplayConfig bounds the console table. Zero means no limit.
type DisplayConfig struct {
	MaxRows    int `mapstructure:"max_rows"`
	MaxColumns int `mapstructure:"max_columns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance carrying the defaults and environment binding.
// Flags may be bound onto it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("GEOETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input.path", "data_points")
	v.SetDefault("database.driver", repository.DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "toor")
	v.SetDefault("database.name", "etl")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.dsn", "")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "geocoding-etl/1.0")
	v.SetDefault("geocoder.language", "")
	v.SetDefault("geocoder.rate_limit", 1.0)
	v.SetDefault("geocoder.timeout", 15*time.Second)
	v.SetDefault("geocoder.cache_ttl", time.Duration(0))
	v.SetDefault("geocoder.workers", 1)
	v.SetDefault("run.drop_tables", false)
	v.SetDefault("run.create_tables", false)
	v.SetDefault("run.load_data", false)
	v.SetDefault("run.visualize", true)
	v.SetDefault("run.commit", 50)
	v.SetDefault("run.yes", false)
	v.SetDefault("display.max_rows", 0)
	v.SetDefault("display.max_columns", 0)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	return v
}

// Load reads the configuration file, when there is one, and unmarshals v.
// An explicit configFile must exist; otherwise config.yaml is looked up in
// ./configs and the working directory.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = New()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ConnString returns the driver-specific connection string.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if strings.EqualFold(d.Driver, repository.DriverSQLite) {
		return d.Name
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted returns the connection string with the password masked, for logs.
func (d DatabaseConfig) Redacted() string {
	conn := d.ConnString()
	u, err := url.Parse(conn)
	if err != nil || u.User == nil {
		return conn
	}
	return u.Redacted()
}

// InitLogger configures the global zerolog logger.
func InitLogger(cfg LogConfig) error {
	return initLogger(cfg, os.Stderr)
}

func initLogger(cfg LogConfig, w io.Writer) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return eris.Wrap(err, "config: parse log level")
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	case "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	default:
		return eris.Errorf("config: unknown log format %q", cfg.Format)
	}
	return nil
}
