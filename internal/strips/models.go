package strips

import (
	"strings"
	"time"
)

// Stage is a named phase of ground/flight handling a strip is assigned to
type Stage string

const (
	StageClearance Stage = "clearance"
	StageGround    Stage = "ground"
	StageTower     Stage = "tower"
	StageDeparture Stage = "departure"
	StageArrival   Stage = "arrival"
)

// Stages lists the workflow stages in board order
var Stages = []Stage{StageClearance, StageGround, StageTower, StageDeparture, StageArrival}

// ParseStage normalizes a free-text stage name (as emitted by the inference
// service) to a known Stage. Unknown names are returned as-is so the board
// can decide whether to accept them.
func ParseStage(s string) (Stage, bool) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Stages {
		if stage == known {
			return known, true
		}
	}
	return stage, false
}

// FlightStrip represents one flight progress strip on the board.
// Strips are identified externally by callsign, not by a synthetic ID,
// because the inference service communicates using callsigns.
type FlightStrip struct {
	Callsign     string    `json:"callsign"`
	AircraftType string    `json:"aircraft_type,omitempty"`
	Route        string    `json:"route,omitempty"`
	Altitude     float64   `json:"altitude"`
	Speed        float64   `json:"speed"`
	VerticalRate float64   `json:"vertical_rate"`
	Squawk       string    `json:"squawk,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Stage        Stage     `json:"stage"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot is a read-only view of the board passed into prompts and
// resolved against by the action dispatcher. Strips keep board order.
type Snapshot struct {
	Strips  []FlightStrip `json:"strips"`
	TakenAt time.Time     `json:"taken_at"`
}

// Find resolves a callsign case-insensitively. First match wins when the
// snapshot carries duplicates; duplicate callsigns are a data-quality issue
// of the supplier, not handled here.
func (s Snapshot) Find(callsign string) (FlightStrip, bool) {
	for _, strip := range s.Strips {
		if strings.EqualFold(strip.Callsign, callsign) {
			return strip, true
		}
	}
	return FlightStrip{}, false
}

// ByStage groups the snapshot's strips by workflow stage, preserving order
func (s Snapshot) ByStage() map[Stage][]FlightStrip {
	grouped := make(map[Stage][]FlightStrip)
	for _, strip := range s.Strips {
		grouped[strip.Stage] = append(grouped[strip.Stage], strip)
	}
	return grouped
}
