package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/calsper/tasteline/internal/taste"
)

// ErrVersionConflict means another writer recomputed the model between
// our read and write. Callers retry with a fresh read.
var ErrVersionConflict = errors.New("preference model version conflict")

// learnedFields is the JSON blob of everything Learn replaces. The
// counters live in their own columns so they can move atomically.
type learnedFields struct {
	Energy        taste.FeatureRange                 `json:"energy"`
	Valence       taste.FeatureRange                 `json:"valence"`
	Danceability  taste.FeatureRange                 `json:"danceability"`
	Acousticness  taste.FeatureRange                 `json:"acousticness"`
	Tempo         taste.FeatureRange                 `json:"tempo"`
	Correlations  taste.FeatureCorrelations          `json:"correlations"`
	DescriptorMap map[string]taste.DescriptorProfile `json:"descriptor_map,omitempty"`
}

// GetModel loads the user's preference model, or nil if none exists yet.
// A corrupt learned blob degrades to defaults rather than failing; the
// next recompute rebuilds it from the rating log.
func (s *Store) GetModel(user string) (*taste.PreferenceModel, error) {
	row := s.db.QueryRow(`
		SELECT learned, total_predictions, correct_predictions, current_streak,
		       longest_streak, surprise_count, prediction_accuracy,
		       decipher_progress, version, updated_at
		FROM PreferenceModel WHERE user = ?`, user)

	var learned string
	var updatedAt int64
	m := taste.NewPreferenceModel(user)
	err := row.Scan(&learned, &m.TotalPredictions, &m.CorrectPredictions,
		&m.CurrentStreak, &m.LongestStreak, &m.SurpriseCount,
		&m.PredictionAccuracy, &m.DecipherProgress, &m.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting model for %q: %w", user, err)
	}
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	var lf learnedFields
	if err := json.Unmarshal([]byte(learned), &lf); err == nil {
		m.Energy = lf.Energy
		m.Valence = lf.Valence
		m.Danceability = lf.Danceability
		m.Acousticness = lf.Acousticness
		m.Tempo = lf.Tempo
		m.Correlations = lf.Correlations
		m.DescriptorMap = lf.DescriptorMap
	}
	return m, nil
}

// SaveModel upserts the learned fields, guarded by the version the
// caller read. Counters are written as-read; outcome recording is the
// only path that moves them independently, and it uses atomic
// increments.
func (s *Store) SaveModel(m *taste.PreferenceModel) error {
	learned, err := json.Marshal(learnedFields{
		Energy:        m.Energy,
		Valence:       m.Valence,
		Danceability:  m.Danceability,
		Acousticness:  m.Acousticness,
		Tempo:         m.Tempo,
		Correlations:  m.Correlations,
		DescriptorMap: m.DescriptorMap,
	})
	if err != nil {
		return fmt.Errorf("encoding learned fields: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO PreferenceModel
			(user, learned, total_predictions, correct_predictions, current_streak,
			 longest_streak, surprise_count, prediction_accuracy, decipher_progress,
			 version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user) DO UPDATE SET
			learned = excluded.learned,
			decipher_progress = excluded.decipher_progress,
			version = PreferenceModel.version + 1,
			updated_at = excluded.updated_at
		WHERE PreferenceModel.version = ?`,
		m.User, string(learned), m.TotalPredictions, m.CorrectPredictions,
		m.CurrentStreak, m.LongestStreak, m.SurpriseCount, m.PredictionAccuracy,
		m.DecipherProgress, m.Version+1, m.UpdatedAt.Unix(), m.Version)
	if err != nil {
		return fmt.Errorf("saving model for %q: %w", m.User, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving model for %q: %w", m.User, err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// RecordOutcomeCounters folds one resolved prediction into the model's
// monotonic counters. Totals move via in-database increments so two
// racing outcomes can never drop a count; the streak fields are absolute
// because a reset-to-zero cannot be expressed as an increment, and the
// engine serializes outcome recording per user.
func (s *Store) RecordOutcomeCounters(user string, correct, surprise bool, currentStreak, longestStreak int) error {
	res, err := s.db.Exec(`
		UPDATE PreferenceModel SET
			total_predictions = total_predictions + 1,
			correct_predictions = correct_predictions + ?,
			surprise_count = surprise_count + ?,
			current_streak = ?,
			longest_streak = MAX(longest_streak, ?),
			prediction_accuracy = CAST(correct_predictions + ? AS REAL) / (total_predictions + 1)
		WHERE user = ?`,
		boolToInt(correct), boolToInt(surprise), currentStreak, longestStreak,
		boolToInt(correct), user)
	if err != nil {
		return fmt.Errorf("recording outcome counters for %q: %w", user, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no preference model for %q", user)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
