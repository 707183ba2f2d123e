// Package patterns scans a user's rating history for named behavioral
// regularities and maintains their lifecycle across recomputes.
package patterns

import "time"

type Category string

const (
	CategoryRating     Category = "rating"
	CategoryDiscovery  Category = "discovery"
	CategoryEngagement Category = "engagement"
	CategorySignature  Category = "signature"
)

type Status string

const (
	StatusEmerging  Status = "emerging"
	StatusConfirmed Status = "confirmed"
	StatusFading    Status = "fading"
	StatusDormant   Status = "dormant"
)

// Pattern is the persisted lifecycle state of one detected regularity.
// Patterns are never deleted, only transitioned to dormant.
type Pattern struct {
	ID              string
	Name            string
	Category        Category
	Status          Status
	Confidence      float64
	FirstDetected   time.Time
	LastConfirmed   time.Time
	OccurrenceCount int
	ImportanceScore float64
}

// Detection is one detector firing on the current history scan.
type Detection struct {
	ID         string
	Name       string
	Category   Category
	Confidence float64
}

// Active reports whether the pattern should count as present for drift
// and graph purposes.
func (p Pattern) Active() bool {
	return p.Status == StatusEmerging || p.Status == StatusConfirmed
}
