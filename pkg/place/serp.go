package place

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const serpEndpoint = "https://serpapi.com/search.json"

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

// Query scopes a provider search.
type Query struct {
	Text      string
	Latitude  float64
	Longitude float64
	Zoom      int
	Locale    string
}

// Viewport renders the "@lat,lon,zoomz" anchor.
func (q Query) Viewport() string {
	zoom := q.Zoom
	if zoom <= 0 {
		zoom = 14
	}
	return fmt.Sprintf("@%s,%s,%dz",
		strconv.FormatFloat(q.Latitude, 'f', -1, 64),
		strconv.FormatFloat(q.Longitude, 'f', -1, 64),
		zoom)
}

// Results holds raw listings from one provider call. Local carries the list
// results; Place carries a single exact match when the provider found one.
type Results struct {
	Local []RawPlace
	Place *RawPlace
}

// Provider fetches raw place listings.
type Provider interface {
	Search(ctx context.Context, q Query) (*Results, error)
}

// ProviderError reports a non-200 answer from the provider.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("place provider returned status %d: %s", e.Status, e.Body)
}

// SerpProvider queries the SerpAPI google_maps engine.
type SerpProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// SerpOption configures a SerpProvider.
type SerpOption func(*SerpProvider)

// WithEndpoint overrides the SerpAPI URL.
func WithEndpoint(endpoint string) SerpOption {
	return func(p *SerpProvider) {
		p.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) SerpOption {
	return func(p *SerpProvider) {
		p.httpClient = c
	}
}

// NewSerpProvider creates a SerpAPI-backed provider.
func NewSerpProvider(apiKey string, opts ...SerpOption) (*SerpProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serpapi API key is required")
	}
	p := &SerpProvider{
		apiKey:     apiKey,
		endpoint:   serpEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Search runs one google_maps query.
func (p *SerpProvider) Search(ctx context.Context, q Query) (*Results, error) {
	params := url.Values{}
	params.Set("engine", "google_maps")
	params.Set("q", q.Text)
	params.Set("ll", q.Viewport())
	params.Set("hl", q.Locale)
	params.Set("api_key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", redactKey(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return parseSerpResponse(body)
}

// redactKey masks api_key in the URL carried by transport errors.
func redactKey(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: redactURL(uerr.URL), Err: uerr.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func parseSerpResponse(body []byte) (*Results, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("serpapi returned invalid JSON")
	}
	root := gjson.ParseBytes(body)

	out := &Results{}
	for _, item := range root.Get("local_results").Array() {
		out.Local = append(out.Local, parseRawPlace(item))
	}
	if pr := root.Get("place_results"); pr.IsObject() {
		raw := parseRawPlace(pr)
		out.Place = &raw
	}

	if msg := root.Get("error").String(); msg != "" && len(out.Local) == 0 && out.Place == nil {
		// An empty search is reported through the error field.
		if strings.Contains(msg, "hasn't returned any results") {
			return out, nil
		}
		return nil, fmt.Errorf("serpapi error: %s", msg)
	}
	return out, nil
}

func parseRawPlace(r gjson.Result) RawPlace {
	raw := RawPlace{
		PlaceID:     r.Get("place_id").String(),
		Title:       r.Get("title").String(),
		Address:     r.Get("address").String(),
		Description: r.Get("description").String(),
		Price:       r.Get("price").String(),
	}
	if raw.PlaceID == "" {
		raw.PlaceID = r.Get("data_id").String()
	}
	if v := r.Get("rating"); v.Exists() && v.Type == gjson.Number {
		rating := v.Float()
		raw.Rating = &rating
	}
	if v := r.Get("gps_coordinates.latitude"); v.Exists() && v.Type == gjson.Number {
		lat := v.Float()
		raw.Latitude = &lat
	}
	if v := r.Get("gps_coordinates.longitude"); v.Exists() && v.Type == gjson.Number {
		lon := v.Float()
		raw.Longitude = &lon
	}
	return raw
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
