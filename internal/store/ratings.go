package store

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/calsper/tasteline/internal/taste"
)

// MaxEventRead caps how much history any single read pulls back.
const MaxEventRead = 500

// AppendRating writes one immutable event to the log and returns its id.
func (s *Store) AppendRating(e taste.RatingEvent) (int64, error) {
	genres, err := json.Marshal(emptyIfNil(e.Genres))
	if err != nil {
		return 0, fmt.Errorf("encoding genres: %w", err)
	}
	descriptors, err := json.Marshal(emptyIfNil(e.Descriptors))
	if err != nil {
		return 0, fmt.Errorf("encoding descriptors: %w", err)
	}

	var features interface{}
	if e.Features != nil {
		b, err := json.Marshal(e.Features)
		if err != nil {
			return 0, fmt.Errorf("encoding features: %w", err)
		}
		features = string(b)
	}

	res, err := s.db.Exec(`
		INSERT INTO Rating (user, item, artist, rating, genres, descriptors, features, item_age_years, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.User, e.Item, e.Artist, e.Rating, string(genres), string(descriptors),
		features, e.ItemAgeYears, e.CreatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("inserting rating: %w", err)
	}
	return res.LastInsertId()
}

// CountRatings returns how many events the user has logged.
func (s *Store) CountRatings(user string) (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM Rating WHERE user = ?", user).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting ratings for %q: %w", user, err)
	}
	return count, nil
}

// RecentEvents reads the user's last limit events (capped at
// MaxEventRead), returned oldest first. Events whose genre list is empty
// borrow the artist's enriched genres when present.
func (s *Store) RecentEvents(user string, limit int) ([]taste.RatingEvent, error) {
	if limit <= 0 || limit > MaxEventRead {
		limit = MaxEventRead
	}

	rows, err := s.db.Query(`
		SELECT r.id, r.user, r.item, r.artist, r.rating, r.genres, r.descriptors,
		       r.features, r.item_age_years, r.created_at, a.genres
		FROM Rating r
		LEFT JOIN Artist a ON r.artist = a.name
		WHERE r.user = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ?`, user, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ratings for %q: %w", user, err)
	}
	defer rows.Close()

	var events []taste.RatingEvent
	for rows.Next() {
		var (
			e                      taste.RatingEvent
			genres, descriptors    string
			features, artistGenres *string
			createdAt              int64
		)
		if err := rows.Scan(&e.ID, &e.User, &e.Item, &e.Artist, &e.Rating,
			&genres, &descriptors, &features, &e.ItemAgeYears, &createdAt, &artistGenres); err != nil {
			return nil, fmt.Errorf("scanning rating: %w", err)
		}

		if err := json.Unmarshal([]byte(genres), &e.Genres); err != nil {
			return nil, fmt.Errorf("decoding genres for rating %d: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(descriptors), &e.Descriptors); err != nil {
			return nil, fmt.Errorf("decoding descriptors for rating %d: %w", e.ID, err)
		}
		if features != nil {
			var f taste.FeatureVector
			if err := json.Unmarshal([]byte(*features), &f); err != nil {
				return nil, fmt.Errorf("decoding features for rating %d: %w", e.ID, err)
			}
			e.Features = &f
		}
		if len(e.Genres) == 0 && artistGenres != nil {
			// Enriched artist genres backfill the event at read time;
			// the stored row stays untouched.
			var ag []string
			if err := json.Unmarshal([]byte(*artistGenres), &ag); err == nil {
				e.Genres = ag
			}
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first, the order every consumer wants.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// ArtistsMissingGenres lists artists whose events carry no genres and
// whose enrichment is stale or absent.
func (s *Store) ArtistsMissingGenres(interval time.Duration) ([]string, error) {
	threshold := time.Now().Add(-interval)
	rows, err := s.db.Query(`
		SELECT DISTINCT r.artist
		FROM Rating r
		LEFT JOIN Artist a ON r.artist = a.name
		WHERE r.artist != '' AND r.genres = '[]'
		  AND (a.name IS NULL OR a.tags_last_updated IS NULL OR a.tags_last_updated < ?)
		ORDER BY r.artist`, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying artists missing genres: %w", err)
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// SaveArtistGenres stores enrichment results and stamps freshness.
func (s *Store) SaveArtistGenres(artist string, genres []string) error {
	b, err := json.Marshal(emptyIfNil(genres))
	if err != nil {
		return fmt.Errorf("encoding genres: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO Artist (name, genres, tags_last_updated) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET genres = excluded.genres, tags_last_updated = excluded.tags_last_updated`,
		artist, string(b), time.Now())
	if err != nil {
		return fmt.Errorf("saving genres for artist %q: %w", artist, err)
	}
	return nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
