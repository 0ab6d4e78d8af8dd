package place

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const serpFixture = `{
  "search_metadata": {"status": "Success"},
  "local_results": [
    {"place_id": "p1", "title": "Cafe One", "rating": 4.6, "address": "Carrer 1", "gps_coordinates": {"latitude": 41.38, "longitude": 2.17}, "description": "Cozy cafe", "price": "€€"},
    {"place_id": "p2", "title": "No Address Bar", "rating": 4.1, "gps_coordinates": {"latitude": 41.39, "longitude": 2.18}},
    {"data_id": "d3", "title": "Museum", "address": "Carrer 3", "gps_coordinates": {"latitude": 41.40, "longitude": 2.19}}
  ]
}`

func TestSerpProviderRequestAndParse(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"engine": q.Get("engine"), "q": q.Get("q"), "ll": q.Get("ll"), "hl": q.Get("hl"), "api_key": q.Get("api_key"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(serpFixture))
	}))
	defer srv.Close()

	p, err := NewSerpProvider("key-1", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	res, err := p.Search(context.Background(), Query{Text: "cafes", Latitude: 41.38, Longitude: 2.17, Zoom: 14, Locale: "en"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	want := map[string]string{"engine": "google_maps", "q": "cafes", "ll": "@41.38,2.17,14z", "hl": "en", "api_key": "key-1"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Fatalf("param %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(res.Local) != 3 {
		t.Fatalf("expected 3 raw listings, got %d", len(res.Local))
	}
	first := res.Local[0]
	if first.PlaceID != "p1" || first.Rating == nil || *first.Rating != 4.6 || first.Price != "€€" {
		t.Fatalf("unexpected first listing %+v", first)
	}
	if res.Local[1].Address != "" || res.Local[1].Usable() {
		t.Fatalf("listing without address must be unusable")
	}
	if res.Local[2].PlaceID != "d3" || res.Local[2].Rating != nil {
		t.Fatalf("expected data_id fallback and nil rating: %+v", res.Local[2])
	}
	if res.Place != nil {
		t.Fatalf("expected no place_results")
	}
}

func TestSerpProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := NewSerpProvider("bad", WithEndpoint(srv.URL))
	_, err := p.Search(context.Background(), Query{Text: "x"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Status != http.StatusUnauthorized {
		t.Fatalf("expected ProviderError 401, got %v", err)
	}
}

func TestSerpProviderTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	p, _ := NewSerpProvider("SECRET-KEY-123", WithEndpoint(endpoint))
	_, err := p.Search(context.Background(), Query{Text: "cafe", Locale: "en"})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Fatalf("api key leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), "api_key=REDACTED") {
		t.Fatalf("expected redacted url in error, got %v", err)
	}
}

func TestSerpProviderCanceledKeepsContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := NewSerpProvider("SECRET-KEY-123", WithEndpoint(srv.URL))
	_, err := p.Search(ctx, Query{Text: "cafe"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestParseSerpResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantLocal int
		wantPlace bool
	}{
		{name: "empty search", body: `{"error":"Google hasn't returned any results for this query."}`},
		{name: "api error", body: `{"error":"Your account has run out of searches."}`, wantErr: true},
		{name: "invalid json", body: `{not json`, wantErr: true},
		{name: "place results", body: `{"place_results":{"title":"Sagrada Familia","address":"C/ de Mallorca, 401","gps_coordinates":{"latitude":41.4036,"longitude":2.1744}}}`, wantPlace: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseSerpResponse([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(res.Local) != tt.wantLocal || (res.Place != nil) != tt.wantPlace {
				t.Fatalf("unexpected results %+v", res)
			}
		})
	}
}
