package strips

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oselight/stripdeck/pkg/logger"
)

// Board holds the live strip state. It is the single source of truth for
// strip data: the assist dispatcher and the HTTP handlers both mutate it
// only through the entry points below, so validation stays in one place.
type Board struct {
	mu     sync.RWMutex
	strips []FlightStrip
	logger *logger.Logger
}

// NewBoard creates an empty strip board
func NewBoard(logger *logger.Logger) *Board {
	return &Board{
		logger: logger.Named("strip-board"),
	}
}

// Snapshot returns a copy of the current board state
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]FlightStrip, len(b.strips))
	copy(out, b.strips)
	return Snapshot{Strips: out, TakenAt: time.Now().UTC()}
}

// Upsert inserts a strip or replaces the strip with the same callsign.
// Operator-entered fields (notes, stage, squawk) survive a feed refresh.
func (b *Board) Upsert(strip FlightStrip) {
	b.mu.Lock()
	defer b.mu.Unlock()

	strip.UpdatedAt = time.Now().UTC()
	for i := range b.strips {
		if strings.EqualFold(b.strips[i].Callsign, strip.Callsign) {
			if strip.Stage == "" {
				strip.Stage = b.strips[i].Stage
			}
			if strip.Notes == "" {
				strip.Notes = b.strips[i].Notes
			}
			if strip.Squawk == "" {
				strip.Squawk = b.strips[i].Squawk
			}
			b.strips[i] = strip
			return
		}
	}

	if strip.Stage == "" {
		strip.Stage = StageClearance
	}
	b.strips = append(b.strips, strip)
}

// Remove deletes the strip with the given callsign, reporting whether it existed
func (b *Board) Remove(callsign string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.strips {
		if strings.EqualFold(b.strips[i].Callsign, callsign) {
			b.strips = append(b.strips[:i], b.strips[i+1:]...)
			return true
		}
	}
	return false
}

// MoveStrip reassigns a strip to a workflow stage
func (b *Board) MoveStrip(callsign string, target Stage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	strip := b.find(callsign)
	if strip == nil {
		return fmt.Errorf("no strip for callsign %q", callsign)
	}

	if _, known := ParseStage(string(target)); !known {
		return fmt.Errorf("unknown workflow stage %q", target)
	}

	strip.Stage = target
	strip.UpdatedAt = time.Now().UTC()
	b.logger.Info("Strip moved",
		logger.String("callsign", strip.Callsign),
		logger.String("stage", string(target)))
	return nil
}

// UpdateNotes replaces the annotation on a strip
func (b *Board) UpdateNotes(callsign string, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	strip := b.find(callsign)
	if strip == nil {
		return fmt.Errorf("no strip for callsign %q", callsign)
	}

	strip.Notes = text
	strip.UpdatedAt = time.Now().UTC()
	b.logger.Info("Strip notes updated", logger.String("callsign", strip.Callsign))
	return nil
}

// UpdateSquawk replaces the transponder code on a strip
func (b *Board) UpdateSquawk(callsign string, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	strip := b.find(callsign)
	if strip == nil {
		return fmt.Errorf("no strip for callsign %q", callsign)
	}

	strip.Squawk = code
	strip.UpdatedAt = time.Now().UTC()
	b.logger.Info("Strip squawk updated",
		logger.String("callsign", strip.Callsign),
		logger.String("squawk", code))
	return nil
}

// find returns a pointer to the strip with the given callsign.
// Caller must hold the lock.
func (b *Board) find(callsign string) *FlightStrip {
	for i := range b.strips {
		if strings.EqualFold(b.strips[i].Callsign, callsign) {
			return &b.strips[i]
		}
	}
	return nil
}
