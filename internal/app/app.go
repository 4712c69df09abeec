package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/engine/agencebio"
	"github.com/rendis/bioconnect/internal/engine/favorites"
	"github.com/rendis/bioconnect/internal/engine/geo"
	"github.com/rendis/bioconnect/internal/engine/prefs"
	"github.com/rendis/bioconnect/internal/engine/search"
	"github.com/rendis/bioconnect/internal/engine/storage"
	"github.com/rendis/bioconnect/internal/model"
)

// App wires the stores, the remote client and the search controller
// around one SQLite database.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Client    *agencebio.Client
	Search    *search.Controller
	Favorites *favorites.Store
	Prefs     *prefs.Store
	Geocoder  *geo.Geocoder

	db *storage.Store
}

// Open builds the application and hydrates favorites and preferences.
// A favorites load failure leaves an empty, memory-only cache.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	db, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	client := agencebio.NewClient(agencebio.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout.Std(),
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.ProxyURL,
		ChromeTLS: cfg.ChromeTLS,
		Logger:    logger,
	})

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Client:    client,
		Search:    search.New(client, search.Options{PageSize: cfg.PageSize, Logger: logger}),
		Favorites: favorites.New(db, favorites.Options{Logger: logger}),
		Prefs:     prefs.New(db, prefs.Options{Logger: logger}),
		Geocoder:  geo.NewGeocoder(cfg.GeocoderURL, logger),
		db:        db,
	}
	a.Prefs.OnChange(a.Search.UseDefaults)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := a.Favorites.LoadAll(gctx); err != nil {
			logger.Printf("APP favorites unavailable, continuing in memory err=%v", err)
		}
		return nil
	})
	g.Go(func() error {
		a.Prefs.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		a.Close()
		return nil, err
	}

	logger.Printf("APP ready db=%s favorites=%d page_size=%d", cfg.DBPath, a.Favorites.Len(), cfg.PageSize)
	return a, nil
}

// Provider picks the position source: pinned coordinates from the config,
// otherwise the saved default address.
func (a *App) Provider() geo.Provider {
	if a.Config.Lat != nil && a.Config.Lng != nil {
		return geo.Fixed{Lat: *a.Config.Lat, Lng: *a.Config.Lng}
	}
	return geo.AddressProvider{Geocoder: a.Geocoder, Prefs: a.Prefs.Current()}
}

// Origin resolves the user's position for a new session. On refusal or
// failure it returns nil and the reason; the session proceeds without a location.
func (a *App) Origin(ctx context.Context) (*model.Coordinates, error) {
	c, err := geo.Locate(ctx, a.Provider(), a.Config.LocateTimeout.Std())
	switch {
	case err == nil:
		a.Logger.Printf("GEO located lat=%.5f lng=%.5f", c.Lat, c.Lng)
		return &c, nil
	case errors.Is(err, geo.ErrPermissionDenied):
		a.Logger.Printf("GEO permission denied, searching without location")
	default:
		a.Logger.Printf("GEO unavailable, searching without location err=%v", err)
	}
	return nil, err
}

// Locate resolves the origin and applies it to the controller. A failed
// lookup clears any previous location.
func (a *App) Locate(ctx context.Context) (*model.Coordinates, error) {
	origin, err := a.Origin(ctx)
	if origin == nil {
		a.Search.ClearLocation()
		return nil, err
	}
	a.Search.SetLocation(*origin)
	return origin, nil
}

// Close ends the search session, drains pending favorite writes and closes the database.
func (a *App) Close() error {
	a.Search.EndSession()
	if err := a.Favorites.Close(); err != nil {
		a.Logger.Printf("APP favorites close err=%v", err)
	}
	return a.db.Close()
}
