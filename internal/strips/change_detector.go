package strips

import (
	"strings"

	"github.com/oselight/stripdeck/pkg/logger"
)

// ChangeDetector tracks strip changes between board snapshots so the
// websocket layer only pushes what actually moved.
type ChangeDetector struct {
	previous map[string]FlightStrip
	logger   *logger.Logger
}

// NewChangeDetector creates a new change detector
func NewChangeDetector(logger *logger.Logger) *ChangeDetector {
	return &ChangeDetector{
		previous: make(map[string]FlightStrip),
		logger:   logger.Named("change-detector"),
	}
}

// StripChange represents a change in strip state
type StripChange struct {
	Type     string       `json:"type"` // "added", "updated", "removed"
	Callsign string       `json:"callsign"`
	Strip    *FlightStrip `json:"strip,omitempty"`
}

// DetectChanges compares a snapshot against the previous one and returns
// the per-strip differences. UpdatedAt is ignored on purpose: a refresh
// that changes nothing observable produces no events.
func (cd *ChangeDetector) DetectChanges(snapshot Snapshot) []StripChange {
	changes := []StripChange{}
	current := make(map[string]FlightStrip, len(snapshot.Strips))

	for _, strip := range snapshot.Strips {
		key := strings.ToUpper(strip.Callsign)
		current[key] = strip

		prev, seen := cd.previous[key]
		if !seen {
			s := strip
			changes = append(changes, StripChange{Type: "added", Callsign: strip.Callsign, Strip: &s})
			continue
		}
		if cd.differs(prev, strip) {
			s := strip
			changes = append(changes, StripChange{Type: "updated", Callsign: strip.Callsign, Strip: &s})
		}
	}

	for key, prev := range cd.previous {
		if _, exists := current[key]; !exists {
			changes = append(changes, StripChange{Type: "removed", Callsign: prev.Callsign})
		}
	}

	cd.previous = current
	return changes
}

func (cd *ChangeDetector) differs(prev, cur FlightStrip) bool {
	switch {
	case prev.Stage != cur.Stage,
		prev.Notes != cur.Notes,
		prev.Squawk != cur.Squawk,
		prev.Altitude != cur.Altitude,
		prev.Speed != cur.Speed,
		prev.VerticalRate != cur.VerticalRate,
		prev.Route != cur.Route,
		prev.AircraftType != cur.AircraftType:
		return true
	}
	return false
}
