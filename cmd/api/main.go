package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"geocoding-etl/internal/config"
	"geocoding-etl/internal/geocode"
	"geocoding-etl/internal/handler"
	"geocoding-etl/internal/repository"
	"geocoding-etl/internal/service"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(nil, "")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("cannot init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection
	store, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.ConnString())
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Database.Redacted()).Msg("cannot connect to db")
	}
	defer store.Close()

	geocoder := geocode.NewCachedGeocoder(geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
		geocode.WithLanguage(cfg.Geocoder.Language),
		geocode.WithRateLimit(cfg.Geocoder.RateLimit),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocoder.Timeout}),
	), cfg.Geocoder.CacheTTL)

	// Initialize layers
	pointService := service.NewPointService(store)
	reverseGeocodeService := service.NewReverseGeoCodeService(geocoder)

	pointsHandler := handler.NewPointsHandler(pointService)
	reverseGeocodeHandler := handler.NewReverseGeocodeHandler(reverseGeocodeService)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler.NewRouter(pointsHandler, reverseGeocodeHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
