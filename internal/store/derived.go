package store

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/calsper/tasteline/internal/consolidate"
	"github.com/calsper/tasteline/internal/patterns"
)

// SavePatterns upserts the full pattern set for a user. Patterns are
// never deleted, so this only ever adds or updates rows.
func (s *Store) SavePatterns(user string, ps []patterns.Pattern) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range ps {
		_, err := tx.Exec(`
			INSERT INTO Pattern
				(user, id, name, category, status, confidence, first_detected,
				 last_confirmed, occurrence_count, importance_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user, id) DO UPDATE SET
				status = excluded.status,
				confidence = excluded.confidence,
				last_confirmed = excluded.last_confirmed,
				occurrence_count = excluded.occurrence_count,
				importance_score = excluded.importance_score`,
			user, p.ID, p.Name, string(p.Category), string(p.Status), p.Confidence,
			p.FirstDetected.Unix(), p.LastConfirmed.Unix(), p.OccurrenceCount,
			p.ImportanceScore)
		if err != nil {
			return fmt.Errorf("upserting pattern %q: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetPatterns returns the user's patterns ordered by importance.
func (s *Store) GetPatterns(user string) ([]patterns.Pattern, error) {
	rows, err := s.db.Query(`
		SELECT id, name, category, status, confidence, first_detected,
		       last_confirmed, occurrence_count, importance_score
		FROM Pattern WHERE user = ?
		ORDER BY importance_score DESC, id`, user)
	if err != nil {
		return nil, fmt.Errorf("querying patterns for %q: %w", user, err)
	}
	defer rows.Close()

	var out []patterns.Pattern
	for rows.Next() {
		var p patterns.Pattern
		var category, status string
		var first, last int64
		if err := rows.Scan(&p.ID, &p.Name, &category, &status, &p.Confidence,
			&first, &last, &p.OccurrenceCount, &p.ImportanceScore); err != nil {
			return nil, fmt.Errorf("scanning pattern: %w", err)
		}
		p.Category = patterns.Category(category)
		p.Status = patterns.Status(status)
		p.FirstDetected = time.Unix(first, 0).UTC()
		p.LastConfirmed = time.Unix(last, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceEpisodes swaps the user's episode window for the new one.
func (s *Store) ReplaceEpisodes(user string, eps []consolidate.Episode) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM Episode WHERE user = ?", user); err != nil {
		return fmt.Errorf("clearing episodes for %q: %w", user, err)
	}
	for _, ep := range eps {
		payload, err := json.Marshal(ep)
		if err != nil {
			return fmt.Errorf("encoding episode %q: %w", ep.ID, err)
		}
		_, err = tx.Exec(
			"INSERT INTO Episode (user, id, start_time, payload) VALUES (?, ?, ?, ?)",
			user, ep.ID, ep.StartTime.Unix(), string(payload))
		if err != nil {
			return fmt.Errorf("inserting episode %q: %w", ep.ID, err)
		}
	}
	return tx.Commit()
}

// GetEpisodes returns the episode window, oldest first. Corrupt payloads
// are skipped; the next recompute rewrites them from the rating log.
func (s *Store) GetEpisodes(user string) ([]consolidate.Episode, error) {
	rows, err := s.db.Query(
		"SELECT payload FROM Episode WHERE user = ? ORDER BY start_time", user)
	if err != nil {
		return nil, fmt.Errorf("querying episodes for %q: %w", user, err)
	}
	defer rows.Close()

	var out []consolidate.Episode
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning episode: %w", err)
		}
		var ep consolidate.Episode
		if err := json.Unmarshal([]byte(payload), &ep); err != nil {
			continue
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// ReplaceTastes rewrites the consolidated taste set wholesale.
func (s *Store) ReplaceTastes(user string, tastes []consolidate.ConsolidatedTaste) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM ConsolidatedTaste WHERE user = ?", user); err != nil {
		return fmt.Errorf("clearing tastes for %q: %w", user, err)
	}
	for _, t := range tastes {
		_, err := tx.Exec(`
			INSERT INTO ConsolidatedTaste
				(user, name, type, trend, recent_avg, older_avg, total_reviews, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user, t.Name, string(t.Type), string(t.Trend), t.RecentAvg, t.OlderAvg,
			t.TotalReviews, t.Confidence)
		if err != nil {
			return fmt.Errorf("inserting taste %q: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// GetTastes returns consolidated tastes, strongest first.
func (s *Store) GetTastes(user string) ([]consolidate.ConsolidatedTaste, error) {
	rows, err := s.db.Query(`
		SELECT name, type, trend, recent_avg, older_avg, total_reviews, confidence
		FROM ConsolidatedTaste WHERE user = ?
		ORDER BY confidence DESC, name`, user)
	if err != nil {
		return nil, fmt.Errorf("querying tastes for %q: %w", user, err)
	}
	defer rows.Close()

	var out []consolidate.ConsolidatedTaste
	for rows.Next() {
		var t consolidate.ConsolidatedTaste
		var typ, trend string
		if err := rows.Scan(&t.Name, &typ, &trend, &t.RecentAvg, &t.OlderAvg,
			&t.TotalReviews, &t.Confidence); err != nil {
			return nil, fmt.Errorf("scanning taste: %w", err)
		}
		t.Type = consolidate.TasteType(typ)
		t.Trend = consolidate.Trend(trend)
		out = append(out, t)
	}
	return out, rows.Err()
}
