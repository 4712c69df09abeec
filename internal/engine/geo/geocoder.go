package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/bioconnect/internal/model"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	geocoderUserAgent   = "bioconnect/0.1 (organic operator directory)"
)

// ErrAddressNotFound is returned when the geocoder has no match.
var ErrAddressNotFound = errors.New("address not found")

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves free-text addresses with the OSM Nominatim API.
type Geocoder struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

func NewGeocoder(baseURL string, logger *log.Logger) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Geocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Geocode returns the position of the best match for address, restricted to France.
func (g *Geocoder) Geocode(ctx context.Context, address string) (model.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Coordinates{}, ErrAddressNotFound
	}

	u := g.baseURL + "?" + url.Values{
		"q":            {address},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {"fr"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", geocoderUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Coordinates{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return model.Coordinates{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return model.Coordinates{}, fmt.Errorf("%w: %q", ErrAddressNotFound, address)
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return model.Coordinates{}, fmt.Errorf("invalid coordinates from geocoder: %q,%q", results[0].Lat, results[0].Lon)
	}

	g.logger.Printf("GEOCODE address=%q match=%q lat=%.5f lng=%.5f", address, results[0].DisplayName, lat, lng)
	return model.Coordinates{Lat: lat, Lng: lng}, nil
}
