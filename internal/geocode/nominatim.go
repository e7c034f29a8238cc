// Package geocode resolves coordinates into structured addresses through the
// OpenStreetMap Nominatim reverse endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "geocoding-etl/1.0"

	// Nominatim answers 200 with this message when nothing is near the point.
	noResultMessage = "Unable to geocode"
)

// ErrLookup is returned for every failed reverse lookup.
var ErrLookup = eris.New("reverse geocode failed")

// Address is a sparse reverse-geocoding result; nil fields were not returned.
type Address struct {
	Lat         *float64
	Lng         *float64
	Street      *string
	HouseNumber *string
	Suburb      *string
	City        *string
	PostalCode  *string
	State       *string
	Country     *string
}

// ReverseGeocoder turns a coordinate pair into an address.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error)
}

// Option configures the Nominatim client.
type Option func(*Client)

// WithBaseURL points the client at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header, which Nominatim requires.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLanguage sets the accept-language parameter.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// WithRateLimit sets the requests-per-second limit. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client calls the Nominatim /reverse endpoint. Failed calls are not retried.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Nominatim client. The default rate of one request per
// second follows the public instance's usage policy.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reverseResponse struct {
	Lat     string            `json:"lat"`
	Lon     string            `json:"lon"`
	Error   string            `json:"error"`
	Address map[string]string `json:"address"`
}

// ReverseGeocode looks up the address closest to lat/lng. A point with nothing
// nearby yields an empty Address, not an error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lng, 'f', -1, 64)},
		"addressdetails": {"1"},
	}
	if c.language != "" {
		params.Set("accept-language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(ErrLookup, "geocode: request: "+err.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(ErrLookup, "geocode: read body: "+err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrLookup, "geocode: nominatim returned status %d", resp.StatusCode)
	}

	var parsed reverseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(ErrLookup, "geocode: parse response: "+err.Error())
	}

	if parsed.Error != "" {
		if parsed.Error == noResultMessage {
			log.Debug().Float64("lat", lat).Float64("lng", lng).Msg("no address near coordinates")
			return &Address{}, nil
		}
		return nil, eris.Wrapf(ErrLookup, "geocode: nominatim error %q", parsed.Error)
	}

	return parsed.toAddress(), nil
}

func (r reverseResponse) toAddress() *Address {
	a := &Address{
		Lat:         parseCoordinate(r.Lat),
		Lng:         parseCoordinate(r.Lon),
		Street:      first(r.Address, "road", "pedestrian", "footway"),
		HouseNumber: first(r.Address, "house_number"),
		Suburb:      first(r.Address, "suburb", "neighbourhood", "quarter", "city_district"),
		City:        first(r.Address, "city", "town", "village", "municipality"),
		PostalCode:  first(r.Address, "postcode"),
		State:       stateCode(r.Address),
		Country:     first(r.Address, "country"),
	}
	return a
}

// stateCode prefers the ISO 3166-2 subdivision code ("BR-SP" becomes "SP"),
// which fits the short state column, and falls back to the state name.
func stateCode(addr map[string]string) *string {
	if iso := first(addr, "ISO3166-2-lvl4", "ISO3166-2-lvl3"); iso != nil {
		if _, code, ok := strings.Cut(*iso, "-"); ok && code != "" {
			return &code
		}
	}
	return first(addr, "state")
}

func first(addr map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v := strings.TrimSpace(addr[k]); v != "" {
			return &v
		}
	}
	return nil
}

func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
