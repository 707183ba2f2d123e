package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/calsper/tasteline/internal/predict"
)

// SavePrediction stores a pending prediction awaiting its real rating.
func (s *Store) SavePrediction(p predict.Prediction) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding prediction: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO Prediction (id, user, item, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.User, p.Item, string(payload), p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting prediction %q: %w", p.ID, err)
	}
	return nil
}

// GetPrediction loads one prediction for the user.
func (s *Store) GetPrediction(user, id string) (*predict.Prediction, bool, error) {
	row := s.db.QueryRow(
		"SELECT payload, class IS NOT NULL FROM Prediction WHERE user = ? AND id = ?", user, id)

	var payload string
	var resolved bool
	err := row.Scan(&payload, &resolved)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting prediction %q: %w", id, err)
	}

	var p predict.Prediction
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, false, fmt.Errorf("decoding prediction %q: %w", id, err)
	}
	return &p, resolved, nil
}

// ResolvePrediction appends the outcome to the prediction's history row.
// The row is written once and never mutated again.
func (s *Store) ResolvePrediction(id string, o predict.Outcome, actualDescriptors []string) error {
	descriptors, err := json.Marshal(emptyIfNil(actualDescriptors))
	if err != nil {
		return fmt.Errorf("encoding descriptors: %w", err)
	}
	res, err := s.db.Exec(`
		UPDATE Prediction
		SET actual = ?, actual_descriptors = ?, class = ?, recorded_at = ?
		WHERE id = ? AND class IS NULL`,
		o.Actual, string(descriptors), string(o.Class), o.RecordedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("resolving prediction %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("prediction %q already resolved or unknown", id)
	}
	return nil
}

// PredictionHistoryEntry is one realized prediction for audit display.
type PredictionHistoryEntry struct {
	Prediction predict.Prediction
	Actual     float64
	Class      predict.OutcomeClass
	RecordedAt time.Time
}

// PredictionHistory returns resolved predictions, newest first.
func (s *Store) PredictionHistory(user string, limit int) ([]PredictionHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT payload, actual, class, recorded_at
		FROM Prediction
		WHERE user = ? AND class IS NOT NULL
		ORDER BY recorded_at DESC LIMIT ?`, user, limit)
	if err != nil {
		return nil, fmt.Errorf("querying prediction history for %q: %w", user, err)
	}
	defer rows.Close()

	var out []PredictionHistoryEntry
	for rows.Next() {
		var payload, class string
		var actual float64
		var recordedAt int64
		if err := rows.Scan(&payload, &actual, &class, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning prediction history: %w", err)
		}
		var entry PredictionHistoryEntry
		if err := json.Unmarshal([]byte(payload), &entry.Prediction); err != nil {
			continue
		}
		entry.Actual = actual
		entry.Class = predict.OutcomeClass(class)
		entry.RecordedAt = time.Unix(recordedAt, 0).UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}
