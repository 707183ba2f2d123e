package store

import (
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/calsper/tasteline/internal/drift"
)

// GetDriftState loads the previous snapshot and the alert ring. A
// missing row means first run (nil snapshot, empty ring). A corrupt blob
// is treated the same way: the structure reinitializes empty and the
// next recompute rebuilds it, rather than failing the pipeline.
func (s *Store) GetDriftState(user string) (*drift.Snapshot, []drift.Alert, error) {
	row := s.db.QueryRow("SELECT snapshot, alerts FROM DriftState WHERE user = ?", user)

	var snapshotJSON sql.NullString
	var alertsJSON string
	err := row.Scan(&snapshotJSON, &alertsJSON)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("getting drift state for %q: %w", user, err)
	}

	var snapshot *drift.Snapshot
	if snapshotJSON.Valid {
		var snap drift.Snapshot
		if err := json.Unmarshal([]byte(snapshotJSON.String), &snap); err == nil {
			snapshot = &snap
		}
	}

	var alerts []drift.Alert
	if err := json.Unmarshal([]byte(alertsJSON), &alerts); err != nil {
		alerts = nil
	}
	return snapshot, alerts, nil
}

// SaveDriftState persists the snapshot and alert ring.
func (s *Store) SaveDriftState(user string, snapshot drift.Snapshot, alerts []drift.Alert) error {
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding drift snapshot: %w", err)
	}
	if alerts == nil {
		alerts = []drift.Alert{}
	}
	alertsJSON, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("encoding drift alerts: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO DriftState (user, snapshot, alerts) VALUES (?, ?, ?)
		ON CONFLICT(user) DO UPDATE SET snapshot = excluded.snapshot, alerts = excluded.alerts`,
		user, string(snapJSON), string(alertsJSON))
	if err != nil {
		return fmt.Errorf("saving drift state for %q: %w", user, err)
	}
	return nil
}

// AcknowledgeAlert marks one alert acknowledged in the ring.
func (s *Store) AcknowledgeAlert(user, alertID string) error {
	snapshot, alerts, err := s.GetDriftState(user)
	if err != nil {
		return err
	}

	found := false
	for i := range alerts {
		if alerts[i].ID == alertID {
			alerts[i].Acknowledged = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("no alert %q for %q", alertID, user)
	}

	snap := drift.Snapshot{}
	if snapshot != nil {
		snap = *snapshot
	}
	return s.SaveDriftState(user, snap, alerts)
}
