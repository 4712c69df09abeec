package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rendis/bioconnect/internal/model"
)

// DefaultLocateTimeout bounds a position fix.
const DefaultLocateTimeout = 15 * time.Second

var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

// Provider is a source of the user's position.
type Provider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (model.Coordinates, error)
}

// Locate asks p for permission, then for one position fix, within timeout.
// A refusal returns ErrPermissionDenied; anything else that prevents a fix
// returns an error wrapping ErrLocationUnavailable. Callers search without
// an origin in both cases.
func Locate(ctx context.Context, p Provider, timeout time.Duration) (model.Coordinates, error) {
	if p == nil {
		return model.Coordinates{}, ErrLocationUnavailable
	}
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	granted, err := p.RequestPermission(ctx)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if !granted {
		return model.Coordinates{}, ErrPermissionDenied
	}

	type fix struct {
		c   model.Coordinates
		err error
	}
	ch := make(chan fix, 1)
	go func() {
		c, err := p.CurrentPosition(ctx)
		ch <- fix{c, err}
	}()

	select {
	case f := <-ch:
		if f.err != nil {
			return model.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, f.err)
		}
		if !validCoordinates(f.c) {
			return model.Coordinates{}, fmt.Errorf("%w: out of range position %.5f,%.5f", ErrLocationUnavailable, f.c.Lat, f.c.Lng)
		}
		return f.c, nil
	case <-ctx.Done():
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, ctx.Err())
	}
}

func validCoordinates(c model.Coordinates) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Fixed is a Provider that always grants and returns the same position.
type Fixed model.Coordinates

func (Fixed) RequestPermission(context.Context) (bool, error) { return true, nil }

func (f Fixed) CurrentPosition(context.Context) (model.Coordinates, error) {
	return model.Coordinates(f), nil
}

// AddressGeocoder resolves an address. *Geocoder satisfies it.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (model.Coordinates, error)
}

// AddressProvider locates the user at their saved default address.
// Permission follows the geolocation opt-in.
type AddressProvider struct {
	Geocoder AddressGeocoder
	Prefs    model.Preferences
}

func (a AddressProvider) RequestPermission(context.Context) (bool, error) {
	return a.Prefs.UseGeolocation, nil
}

func (a AddressProvider) CurrentPosition(ctx context.Context) (model.Coordinates, error) {
	if a.Geocoder == nil {
		return model.Coordinates{}, errors.New("no geocoder configured")
	}
	return a.Geocoder.Geocode(ctx, a.Prefs.DefaultAddress)
}
