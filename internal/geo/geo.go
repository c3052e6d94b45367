// Package geo resolves an approximate position for a login. Lookups are
// best-effort: any failure yields an empty Location and never blocks login.
package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Location is empty when the position is unknown.
type Location struct {
	Latitude  *float64
	Longitude *float64
}

func (l Location) Known() bool {
	return l.Latitude != nil && l.Longitude != nil
}

type Locator interface {
	Locate(ctx context.Context, ip string) Location
}

// NopLocator never resolves a position.
type NopLocator struct{}

func (NopLocator) Locate(context.Context, string) Location { return Location{} }

// GoogleLocator queries the Google Geolocation API with IP-only positioning.
type GoogleLocator struct {
	url    string
	apiKey string
	client *http.Client
}

func NewGoogleLocator(url, apiKey string) *GoogleLocator {
	return &GoogleLocator{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type geoResponse struct {
	Location *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

func (g *GoogleLocator) Locate(ctx context.Context, ip string) Location {
	loc, err := g.lookup(ctx)
	if err != nil {
		slog.Warn("geolocation lookup failed", "ip", ip, "err", err)
		return Location{}
	}
	slog.Debug("geolocation resolved", "ip", ip, "lat", *loc.Latitude, "lon", *loc.Longitude)
	return loc
}

func (g *GoogleLocator) lookup(ctx context.Context) (Location, error) {
	body, _ := json.Marshal(map[string]bool{"considerIp": true})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation api status %d", resp.StatusCode)
	}
	var out geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Location{}, fmt.Errorf("decoding geolocation response: %w", err)
	}
	if out.Location == nil {
		return Location{}, fmt.Errorf("geolocation response has no location")
	}
	lat, lon := out.Location.Lat, out.Location.Lng
	return Location{Latitude: &lat, Longitude: &lon}, nil
}
