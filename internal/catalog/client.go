// Package catalog talks to the external audio-feature provider. The
// provider is rate-limited and occasionally flaky, so every call goes
// through a limiter, a retry policy and a circuit breaker, with a
// per-kind TTL cache in front. A failed fetch degrades the item to "no
// feature vector"; it never blocks rating submission.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/calsper/tasteline/internal/taste"
)

// Cache is the TTL cache the client consults before going upstream.
// The store's CatalogCache table satisfies it.
type Cache interface {
	CacheGet(kind, key string, ttl time.Duration) ([]byte, bool, error)
	CachePut(kind, key string, payload []byte) error
}

// TTLs per cached entity kind. Track features are immutable upstream,
// so they keep the longest.
const (
	TrackTTL  = 30 * 24 * time.Hour
	AlbumTTL  = 24 * time.Hour
	SearchTTL = time.Hour
	ArtistTTL = 7 * 24 * time.Hour
)

const (
	cacheKindTrack = "track-features"

	defaultRequestsPerSecond = 5
	requestTimeout           = 10 * time.Second
)

type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	cache   Cache
	log     zerolog.Logger
}

func New(cfg Config, cache Cache, log zerolog.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	settings := gobreaker.Settings{
		Name: "catalog",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("catalog breaker state change")
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		cache:   cache,
		log:     log,
	}
}

// trackFeaturesResponse is the provider's full payload; the engine only
// keeps the dimensions the fingerprint learns on.
type trackFeaturesResponse struct {
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Danceability     float64 `json:"danceability"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
	Liveness         float64 `json:"liveness"`
	Tempo            float64 `json:"tempo"`
	Loudness         float64 `json:"loudness"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
}

// TrackFeatures fetches the feature vector for one track, cache first.
func (c *Client) TrackFeatures(ctx context.Context, itemID string) (*taste.FeatureVector, error) {
	if c.cache != nil {
		if payload, ok, err := c.cache.CacheGet(cacheKindTrack, itemID, TrackTTL); err == nil && ok {
			var f taste.FeatureVector
			if err := json.Unmarshal(payload, &f); err == nil {
				return &f, nil
			}
			// Corrupt cache entry: fall through and refetch.
		}
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/tracks/%s/features", c.cfg.BaseURL, itemID))
	if err != nil {
		return nil, err
	}

	var resp trackFeaturesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding features for %q: %w", itemID, err)
	}
	f := &taste.FeatureVector{
		Energy:       resp.Energy,
		Valence:      resp.Valence,
		Danceability: resp.Danceability,
		Acousticness: resp.Acousticness,
		Tempo:        resp.Tempo,
		Loudness:     resp.Loudness,
	}

	if c.cache != nil {
		if payload, err := json.Marshal(f); err == nil {
			if err := c.cache.CachePut(cacheKindTrack, itemID, payload); err != nil {
				c.log.Warn().Err(err).Str("item", itemID).Msg("caching features failed")
			}
		}
	}
	return f, nil
}

// TrackFeaturesBatch fetches several tracks, tolerating individual
// failures: missing entries simply have no vector.
func (c *Client) TrackFeaturesBatch(ctx context.Context, itemIDs []string) map[string]*taste.FeatureVector {
	out := make(map[string]*taste.FeatureVector, len(itemIDs))
	for _, id := range itemIDs {
		f, err := c.TrackFeatures(ctx, id)
		if err != nil {
			c.log.Warn().Err(err).Str("item", id).Msg("feature fetch degraded")
			continue
		}
		out[id] = f
	}
	return out
}

// serverError marks responses worth retrying.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("catalog returned %d", e.status)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var body []byte
		err := retry.Do(
			func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					return err
				}
				if c.cfg.APIKey != "" {
					req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
				}

				resp, err := c.http.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				if resp.StatusCode/100 == 5 {
					return &serverError{status: resp.StatusCode}
				}
				if resp.StatusCode != http.StatusOK {
					return retry.Unrecoverable(fmt.Errorf("catalog returned %d", resp.StatusCode))
				}

				body, err = io.ReadAll(resp.Body)
				return err
			},
			retry.Attempts(3),
			retry.RetryIf(func(err error) bool {
				_, ok := err.(*serverError)
				return ok
			}),
		)
		return body, err
	})
}
