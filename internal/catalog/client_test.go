package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calsper/tasteline/internal/store"
)

const featuresPayload = `{
	"energy": 0.8, "valence": 0.7, "danceability": 0.9,
	"acousticness": 0.1, "instrumentalness": 0.6, "speechiness": 0.05,
	"liveness": 0.2, "tempo": 124.0, "loudness": -5.5, "key": 7, "mode": 1
}`

func testCache(t *testing.T) Cache {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "catalog-test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTrackFeatures(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/tracks/abc/features" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(featuresPayload))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "sekrit", RequestsPerSecond: 100}, nil, zerolog.Nop())
	f, err := c.TrackFeatures(context.Background(), "abc")
	if err != nil {
		t.Fatalf("TrackFeatures: %v", err)
	}
	if f.Energy != 0.8 || f.Valence != 0.7 || f.Danceability != 0.9 {
		t.Errorf("got %+v", f)
	}
	if f.Tempo != 124 || f.Loudness != -5.5 || f.Acousticness != 0.1 {
		t.Errorf("got %+v", f)
	}
	if requests.Load() != 1 {
		t.Errorf("made %d requests, want 1", requests.Load())
	}
}

func TestTrackFeaturesCacheHit(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(featuresPayload))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}, testCache(t), zerolog.Nop())
	first, err := c.TrackFeatures(context.Background(), "abc")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.TrackFeatures(context.Background(), "abc")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if *first != *second {
		t.Errorf("cache returned a different vector: %+v vs %+v", first, second)
	}
	if requests.Load() != 1 {
		t.Errorf("made %d requests, want 1 (second call should hit the cache)", requests.Load())
	}
}

func TestTrackFeaturesRetriesServerErrors(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(featuresPayload))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}, nil, zerolog.Nop())
	f, err := c.TrackFeatures(context.Background(), "abc")
	if err != nil {
		t.Fatalf("TrackFeatures after retries: %v", err)
	}
	if f.Danceability != 0.9 {
		t.Errorf("got %+v", f)
	}
	if requests.Load() != 3 {
		t.Errorf("made %d requests, want 3", requests.Load())
	}
}

func TestTrackFeaturesDoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}, nil, zerolog.Nop())
	if _, err := c.TrackFeatures(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a 404")
	}
	if requests.Load() != 1 {
		t.Errorf("made %d requests for a 404, want 1", requests.Load())
	}
}

func TestTrackFeaturesBatchDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tracks/good/features" {
			w.Write([]byte(featuresPayload))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}, nil, zerolog.Nop())
	got := c.TrackFeaturesBatch(context.Background(), []string{"good", "gone"})
	if len(got) != 1 {
		t.Fatalf("batch returned %d vectors, want 1", len(got))
	}
	if got["good"] == nil {
		t.Error("the reachable track is missing from the batch")
	}
}
