package assist

import (
	"fmt"

	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/pkg/logger"
)

// StripMutator is the surface the host application exposes for strip
// mutations. The dispatcher never touches strip state directly, so the
// host keeps its single source of truth and can layer validation or undo
// behind these entry points.
type StripMutator interface {
	MoveStrip(callsign string, target strips.Stage) error
	UpdateNotes(callsign string, text string) error
	UpdateSquawk(callsign string, code string) error
}

// Dispatcher applies parsed action invocations against live strip state
type Dispatcher struct {
	logger *logger.Logger
}

// NewDispatcher creates a new action dispatcher
func NewDispatcher(log *logger.Logger) *Dispatcher {
	return &Dispatcher{logger: log.Named("dispatcher")}
}

// Dispatch applies invocations synchronously and in order, so a later
// action on the same subject observably supersedes an earlier one. Each
// subject is resolved case-insensitively against the snapshot; an
// unresolved subject is skipped with a recorded reason and never aborts
// the remaining actions.
func (d *Dispatcher) Dispatch(snapshot strips.Snapshot, mutator StripMutator, invocations []ActionInvocation) ([]AppliedAction, []SkippedAction) {
	applied := []AppliedAction{}
	skipped := []SkippedAction{}

	for _, inv := range invocations {
		strip, ok := snapshot.Find(inv.Subject)
		if !ok {
			d.logger.Warn("Action subject not on the board",
				logger.String("kind", string(inv.Kind)),
				logger.String("subject", inv.Subject))
			skipped = append(skipped, SkippedAction{
				ActionInvocation: inv,
				Reason:           fmt.Sprintf("callsign %s not on the board", inv.Subject),
			})
			continue
		}

		description, err := d.apply(mutator, strip.Callsign, inv)
		if err != nil {
			skipped = append(skipped, SkippedAction{ActionInvocation: inv, Reason: err.Error()})
			continue
		}

		d.logger.Info("Action applied",
			logger.String("kind", string(inv.Kind)),
			logger.String("callsign", strip.Callsign))
		applied = append(applied, AppliedAction{ActionInvocation: inv, Description: description})
	}

	return applied, skipped
}

// apply performs exactly one mutation through the host's entry points,
// addressing the strip by its canonical (snapshot) callsign
func (d *Dispatcher) apply(mutator StripMutator, callsign string, inv ActionInvocation) (string, error) {
	if len(inv.Arguments) == 0 {
		return "", fmt.Errorf("missing argument for %s", inv.Kind)
	}

	switch inv.Kind {
	case ActionMoveStrip:
		stage, _ := strips.ParseStage(inv.Arguments[0])
		if err := mutator.MoveStrip(callsign, stage); err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved %s to %s", callsign, stage), nil

	case ActionUpdateNotes:
		if err := mutator.UpdateNotes(callsign, inv.Arguments[0]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Updated notes for %s", callsign), nil

	case ActionUpdateSquawk:
		if err := mutator.UpdateSquawk(callsign, inv.Arguments[0]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Set %s squawk to %s", callsign, inv.Arguments[0]), nil
	}

	return "", fmt.Errorf("unrecognized action kind %q", inv.Kind)
}
