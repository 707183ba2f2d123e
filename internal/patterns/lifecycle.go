package patterns

import (
	"sort"
	"time"
)

const (
	// confirmOccurrences promotes an emerging pattern once it has been
	// re-detected this many times.
	confirmOccurrences = 3
	// fadeAfter is how long a confirmed pattern survives without
	// reconfirmation before it fades.
	fadeAfter = 30 * 24 * time.Hour
	// dormantAfter retires a fading pattern.
	dormantAfter = 60 * 24 * time.Hour
)

// Apply folds the current scan's detections into the persisted pattern
// set: detections upsert by id, undetected patterns age through
// fading into dormant. The input slice is not mutated; the result is
// sorted by id for stable persistence.
func Apply(existing []Pattern, detections []Detection, now time.Time) []Pattern {
	byID := make(map[string]Pattern, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}

	detected := make(map[string]struct{}, len(detections))
	for _, d := range detections {
		detected[d.ID] = struct{}{}
		p, ok := byID[d.ID]
		if !ok {
			byID[d.ID] = Pattern{
				ID:              d.ID,
				Name:            d.Name,
				Category:        d.Category,
				Status:          StatusEmerging,
				Confidence:      d.Confidence,
				FirstDetected:   now,
				LastConfirmed:   now,
				OccurrenceCount: 1,
			}
			continue
		}

		p.LastConfirmed = now
		p.OccurrenceCount++
		if d.Confidence > p.Confidence {
			p.Confidence = d.Confidence
		}
		if p.OccurrenceCount >= confirmOccurrences {
			p.Status = StatusConfirmed
		} else {
			p.Status = StatusEmerging
		}
		byID[d.ID] = p
	}

	for id, p := range byID {
		if _, ok := detected[id]; ok {
			continue
		}
		idle := now.Sub(p.LastConfirmed)
		switch p.Status {
		case StatusConfirmed:
			if idle > fadeAfter {
				p.Status = StatusFading
			}
		case StatusFading:
			if idle > dormantAfter {
				p.Status = StatusDormant
			}
		}
		byID[id] = p
	}

	out := make([]Pattern, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveIDs returns the ids of emerging and confirmed patterns, sorted.
func ActiveIDs(ps []Pattern) []string {
	var ids []string
	for _, p := range ps {
		if p.Active() {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
