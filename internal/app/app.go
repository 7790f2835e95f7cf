// Package app wires configuration, storage and services into a running
// parking recorder. It is shared by the HTTP server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/parkit/server/internal/config"
	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/repository"
	"github.com/parkit/server/internal/services"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	DB         *sql.DB
	DBSystem   string
	Store      *repository.RecordStore
	EXIF       *services.EXIFService
	Capture    *services.CaptureService
	Geo        *services.GeolocationService
	Guide      *services.GuideService
	Controller *services.ParkingController
}

// New opens the configured database and builds the services. The
// controller is not started.
func New(cfg *config.Config, opts ...services.ControllerOption) (*App, error) {
	a := &App{Config: cfg}

	var err error
	if cfg.UsePostgres() {
		a.DBSystem = "postgresql"
		a.DB, err = repository.NewPostgresDB(cfg.DatabaseURL)
	} else {
		a.DBSystem = "sqlite"
		a.DB, err = repository.NewSQLiteDB(cfg.DatabasePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database: %w", a.DBSystem, err)
	}

	var dbtx repository.DBTX = a.DB
	if cfg.Telemetry.Enabled {
		dbtx = observability.NewTraceDB(a.DB, a.DBSystem)
	}
	a.Store = repository.NewRecordStore(repository.NewSQLKVStore(dbtx, cfg.Store.QuotaBytes))

	a.EXIF = services.NewEXIFService()
	a.Capture = services.NewCaptureService(services.CaptureOptions{
		MaxWidth:       cfg.Capture.MaxWidth,
		MaxHeight:      cfg.Capture.MaxHeight,
		Quality:        cfg.Capture.Quality,
		MaxUploadBytes: cfg.Capture.MaxUploadMB << 20,
	}, a.EXIF)
	a.Geo = services.NewGeolocationService(cfg.Geolocation.Timeout(), cfg.Geolocation.MaxAge(), a.EXIF)
	a.Guide = services.NewGuideService(a.Store)

	base := []services.ControllerOption{
		services.WithTick(cfg.Readout.Tick()),
		services.WithThresholds(services.Thresholds{
			Warning: time.Duration(cfg.Readout.WarningMinutes) * time.Minute,
			Danger:  time.Duration(cfg.Readout.DangerMinutes) * time.Minute,
		}),
	}
	if cfg.Telemetry.Enabled {
		metrics, err := observability.NewParkingMetrics()
		if err != nil {
			observability.Warnf("Failed to create parking metrics: %v", err)
		} else {
			base = append(base, services.WithMetrics(metrics))
		}
	}

	a.Controller = services.NewParkingController(a.Store, a.Capture, a.Geo, append(base, opts...)...)
	return a, nil
}

// Start loads the persisted record into the controller
func (a *App) Start(ctx context.Context) {
	if err := a.Controller.Start(ctx); err != nil {
		observability.Errorf("Failed to load parking record: %v", err)
	}
}

// Close stops the controller and closes the database
func (a *App) Close() error {
	a.Controller.Stop()
	return a.DB.Close()
}
