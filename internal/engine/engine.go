// Package engine wires the pipeline together: append a rating, relearn
// the fingerprint, rescan patterns, resegment episodes, diff for drift,
// and rebuild the cognitive graph. Everything derived is reconstructible
// from the rating log, so the engine holds no state between calls beyond
// the per-user locks that serialize writers.
package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/calsper/tasteline/internal/catalog"
	"github.com/calsper/tasteline/internal/consolidate"
	"github.com/calsper/tasteline/internal/drift"
	"github.com/calsper/tasteline/internal/patterns"
	"github.com/calsper/tasteline/internal/predict"
	"github.com/calsper/tasteline/internal/store"
	"github.com/calsper/tasteline/internal/taste"
)

// DefaultRecomputeEvery triggers a synchronous recompute on every Nth
// new rating.
const DefaultRecomputeEvery = 5

type Engine struct {
	store          *store.Store
	catalog        *catalog.Client
	log            zerolog.Logger
	recomputeEvery int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithCatalog attaches the feature provider; without it every rating is
// stored featureless.
func WithCatalog(c *catalog.Client) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithRecomputeEvery overrides the recompute cadence; 1 recomputes on
// every rating.
func WithRecomputeEvery(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recomputeEvery = n
		}
	}
}

func New(s *store.Store, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		log:            log,
		recomputeEvery: DefaultRecomputeEvery,
		locks:          make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// userLock returns the mutex serializing all writers for one user.
func (e *Engine) userLock(user string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[user]
	if !ok {
		l = &sync.Mutex{}
		e.locks[user] = l
	}
	return l
}

// RecordRating appends one event to the log, fetching features
// best-effort, and recomputes the user's derived state when the cadence
// says so. It reports whether a recompute ran.
func (e *Engine) RecordRating(ctx context.Context, event taste.RatingEvent) (bool, error) {
	if event.Rating < 0 || event.Rating > 10 {
		return false, fmt.Errorf("rating %.1f out of range [0,10]", event.Rating)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if event.Features == nil && e.catalog != nil {
		f, err := e.catalog.TrackFeatures(ctx, event.Item)
		if err != nil {
			// Provider trouble must never block the submission.
			e.log.Warn().Err(err).Str("item", event.Item).Msg("storing rating without features")
		} else {
			event.Features = f
		}
	}

	lock := e.userLock(event.User)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.CreateUser(event.User); err != nil {
		return false, err
	}
	if _, err := e.store.AppendRating(event); err != nil {
		return false, err
	}

	count, err := e.store.CountRatings(event.User)
	if err != nil {
		return false, err
	}
	if count%e.recomputeEvery != 0 {
		return false, nil
	}
	if err := e.recomputeLocked(ctx, event.User); err != nil {
		return false, err
	}
	return true, nil
}

// Recompute rebuilds all derived state for one user from the rating log.
func (e *Engine) Recompute(ctx context.Context, user string) error {
	lock := e.userLock(user)
	lock.Lock()
	defer lock.Unlock()
	return e.recomputeLocked(ctx, user)
}

// RecomputeAll runs the pipeline for many users in parallel. Different
// users never share state, so this is safe at any parallelism.
func (e *Engine) RecomputeAll(ctx context.Context, users []string, parallelism int) error {
	if parallelism <= 0 {
		parallelism = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, user := range users {
		user := user
		g.Go(func() error {
			if err := e.Recompute(ctx, user); err != nil {
				return fmt.Errorf("recomputing %q: %w", user, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// recomputeLocked is the sequential pipeline. Order matters: patterns
// read the same history the fingerprint learned on, episodes read
// patterns, drift reads the pattern set last.
func (e *Engine) recomputeLocked(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	started := time.Now()
	now := time.Now().UTC()

	events, err := e.store.RecentEvents(user, store.MaxEventRead)
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}

	// Preference model: learned fields replaced, counters carried over.
	prior, err := e.store.GetModel(user)
	if err != nil {
		return fmt.Errorf("reading model: %w", err)
	}
	if prior == nil {
		prior = taste.NewPreferenceModel(user)
	}
	model := taste.Learn(events, prior, now)
	if err := e.store.SaveModel(model); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}

	// Patterns: rescan history, fold into lifecycle.
	existing, err := e.store.GetPatterns(user)
	if err != nil {
		return fmt.Errorf("reading patterns: %w", err)
	}
	detections := patterns.Detect(events)
	updated := patterns.Apply(existing, detections, now)

	// Episodes and graph: rank patterns by graph importance.
	episodes := consolidate.Episodes(events)
	g := consolidate.BuildGraph(updated, episodes, now)
	updated = consolidate.RankPatterns(updated, g, now)

	if err := e.store.SavePatterns(user, updated); err != nil {
		return fmt.Errorf("saving patterns: %w", err)
	}
	if err := e.store.ReplaceEpisodes(user, episodes); err != nil {
		return fmt.Errorf("saving episodes: %w", err)
	}
	if err := e.store.ReplaceTastes(user, consolidate.Tastes(events, now)); err != nil {
		return fmt.Errorf("saving tastes: %w", err)
	}

	// Drift: diff against the previous snapshot, append to the ring.
	prevSnapshot, ring, err := e.store.GetDriftState(user)
	if err != nil {
		return fmt.Errorf("reading drift state: %w", err)
	}
	next := drift.BuildSnapshot(events, patterns.ActiveIDs(updated), now)
	alerts := drift.Compare(prevSnapshot, next, events, now)
	ring = drift.AppendAlerts(ring, alerts...)
	if err := e.store.SaveDriftState(user, next, ring); err != nil {
		return fmt.Errorf("saving drift state: %w", err)
	}

	if err := e.store.SetLastRecomputed(user); err != nil {
		return err
	}

	e.log.Info().
		Str("user", user).
		Int("events", len(events)).
		Int("patterns", len(updated)).
		Int("episodes", len(episodes)).
		Int("new_alerts", len(alerts)).
		Dur("took", time.Since(started)).
		Msg("recompute finished")
	return nil
}

// Predict estimates the user's rating for an item. features may be nil;
// the estimate then runs degraded. The prediction is stored pending
// until RecordOutcome resolves it.
func (e *Engine) Predict(ctx context.Context, user, item string, features *taste.FeatureVector) (predict.Prediction, error) {
	if features == nil && e.catalog != nil && item != "" {
		f, err := e.catalog.TrackFeatures(ctx, item)
		if err != nil {
			e.log.Warn().Err(err).Str("item", item).Msg("predicting without features")
		} else {
			features = f
		}
	}

	model, err := e.store.GetModel(user)
	if err != nil {
		return predict.Prediction{}, err
	}
	if model == nil {
		model = taste.NewPreferenceModel(user)
	}

	events, err := e.store.RecentEvents(user, store.MaxEventRead)
	if err != nil {
		return predict.Prediction{}, err
	}

	p := predict.Predict(model, item, features, events, reasoningSeed(user, item), time.Now().UTC())
	if err := e.store.CreateUser(user); err != nil {
		return predict.Prediction{}, err
	}
	if err := e.store.SavePrediction(p); err != nil {
		return predict.Prediction{}, err
	}
	return p, nil
}

// RecordOutcome resolves a pending prediction against the real rating,
// classifies it, and folds the result into the model's counters.
func (e *Engine) RecordOutcome(ctx context.Context, user, predictionID string, actual float64, actualDescriptors []string) (predict.Outcome, error) {
	if actual < 0 || actual > 10 {
		return predict.Outcome{}, fmt.Errorf("rating %.1f out of range [0,10]", actual)
	}

	lock := e.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	p, resolved, err := e.store.GetPrediction(user, predictionID)
	if err != nil {
		return predict.Outcome{}, err
	}
	if p == nil {
		return predict.Outcome{}, fmt.Errorf("no prediction %q for %q", predictionID, user)
	}
	if resolved {
		return predict.Outcome{}, fmt.Errorf("prediction %q already resolved", predictionID)
	}

	class := predict.Classify(p.Predicted, actual, p.Confidence)
	outcome := predict.Outcome{
		PredictionID: predictionID,
		Actual:       actual,
		Diff:         absDiff(p.Predicted, actual),
		Class:        class,
		RecordedAt:   time.Now().UTC(),
	}

	model, err := e.store.GetModel(user)
	if err != nil {
		return predict.Outcome{}, err
	}
	if model == nil {
		model = taste.NewPreferenceModel(user)
		model.UpdatedAt = outcome.RecordedAt
		if err := e.store.SaveModel(model); err != nil {
			return predict.Outcome{}, err
		}
	}

	streak, longest := predict.NextStreak(model.CurrentStreak, model.LongestStreak, class)
	surprise := class == predict.OutcomeSurprise
	if err := e.store.RecordOutcomeCounters(user, class.Correct(), surprise, streak, longest); err != nil {
		return predict.Outcome{}, err
	}
	if err := e.store.ResolvePrediction(predictionID, outcome, actualDescriptors); err != nil {
		return predict.Outcome{}, err
	}

	e.log.Info().
		Str("user", user).
		Str("prediction", predictionID).
		Str("class", string(class)).
		Float64("predicted", p.Predicted).
		Float64("actual", actual).
		Msg("outcome recorded")
	return outcome, nil
}

// reasoningSeed derives the phrase-bank seed from the prediction's
// identity so identical requests phrase identically.
func reasoningSeed(user, item string) int64 {
	h := fnv.New64a()
	h.Write([]byte(user))
	h.Write([]byte{'|'})
	h.Write([]byte(item))
	return int64(h.Sum64())
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
