package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const openRouteServiceURL = "https://api.openrouteservice.org"

// Geocoder proxies address lookups to openrouteservice. It sits outside the
// assignment core; parcel creation captures coordinates from saved
// addresses, not from live geocoding.
type Geocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeocoder() *Geocoder {
	base := os.Getenv("ORS_BASE_URL")
	if base == "" {
		base = openRouteServiceURL
	}
	return &Geocoder{
		apiKey:  os.Getenv("ORS_API_KEY"),
		baseURL: base,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Geocode resolves an address text to candidate coordinates.
func (g *Geocoder) Geocode(ctx context.Context, address string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("api_key", g.apiKey)
	params.Set("text", address)
	params.Set("boundary.country", "TH")
	params.Set("size", "10")
	params.Set("lang", "th")

	return g.get(ctx, "/geocode/search", params)
}

// ReverseGeocode resolves coordinates to the nearest address.
func (g *Geocoder) ReverseGeocode(ctx context.Context, latitude, longitude float64) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("api_key", g.apiKey)
	params.Set("point.lat", fmt.Sprintf("%f", latitude))
	params.Set("point.lon", fmt.Sprintf("%f", longitude))
	params.Set("lang", "th")
	params.Set("size", "1")

	return g.get(ctx, "/geocode/reverse", params)
}

func (g *Geocoder) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "SendeeApp/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned %d", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}
