package assist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oselight/stripdeck/internal/strips"
)

// Task identifies what the prompt asks the inference service to do
type Task string

const (
	TaskBehaviorAnalysis Task = "behavior-analysis"
	TaskQuery            Task = "natural-language-query"
	TaskCommandRelay     Task = "command-relay"
	TaskIncidentSummary  Task = "incident-summary"
)

const systemPreamble = "You are an expert air traffic control analyst assisting with a flight " +
	"progress strip board. Be precise and concise. Altitudes are feet, speeds are " +
	"knots, vertical rates are feet per minute."

// PromptBuilder assembles completion prompts from the current domain state.
// It is deterministic for identical inputs and has no side effects, which
// is what makes the prompt layer testable at all.
type PromptBuilder struct {
	maxRecords int
}

// NewPromptBuilder creates a prompt builder bounding each prompt to at most
// maxRecords strips
func NewPromptBuilder(maxRecords int) *PromptBuilder {
	if maxRecords <= 0 {
		maxRecords = 20
	}
	return &PromptBuilder{maxRecords: maxRecords}
}

// promptRecord is the stable serialization of one strip embedded in a
// prompt. Board bookkeeping fields stay out so identical domain state
// yields byte-identical prompts.
type promptRecord struct {
	Callsign     string  `json:"callsign"`
	AircraftType string  `json:"aircraft_type,omitempty"`
	Route        string  `json:"route,omitempty"`
	Altitude     float64 `json:"altitude"`
	Speed        float64 `json:"speed"`
	VerticalRate float64 `json:"vertical_rate"`
	Squawk       string  `json:"squawk,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	Stage        string  `json:"stage"`
}

// Build assembles the system and user prompt for a task. The input string
// is the operator's query or instruction (unused for behavior analysis);
// prior is the previous analysis of the subject flight, when cached.
func (pb *PromptBuilder) Build(task Task, snapshot strips.Snapshot, input string, prior *AnalysisResult) (system string, user string) {
	var b strings.Builder

	b.WriteString("Current strip board (")
	records := pb.serializeSnapshot(snapshot)
	fmt.Fprintf(&b, "%d of %d strips shown):\n%s\n", min(len(snapshot.Strips), pb.maxRecords), len(snapshot.Strips), records)

	if prior != nil {
		fmt.Fprintf(&b, "\nPrevious assessment of the subject flight: status=%s confidence=%.2f summary=%q\n",
			prior.Status, prior.Confidence, prior.Summary)
	}

	switch task {
	case TaskBehaviorAnalysis:
		b.WriteString("\nTask: analyze the behavior of the flight described below.\n")
		b.WriteString(input)
		b.WriteString("\n\nRespond with exactly one JSON object and nothing else, in this form:\n")
		b.WriteString(`{"status": "normal|monitoring|concerning|critical", "summary": "one sentence", "concerns": ["specific concerns"], "confidence": 0.0}`)

	case TaskQuery:
		fmt.Fprintf(&b, "\nTask: answer this question about the strip board: %q\n", input)
		b.WriteString("\nRespond with exactly one JSON object and nothing else, in this form:\n")
		b.WriteString(`{"response": "natural language answer", "matching_callsigns": ["CALLSIGN"], "insights": ["key insights"]}`)

	case TaskCommandRelay:
		fmt.Fprintf(&b, "\nTask: translate this controller instruction into strip board actions: %q\n", input)
		b.WriteString("\nRespond ONLY with action calls, one per line, chosen from:\n")
		b.WriteString("moveStrip(callsign, clearance|ground|tower|departure|arrival)\n")
		b.WriteString("updateStripNotes(callsign, text)\n")
		b.WriteString("updateStripSquawk(callsign, code)\n")
		b.WriteString("Emit no other text. If the instruction requires no action, emit nothing.")

	case TaskIncidentSummary:
		b.WriteString("\nTask: write a one-line incident summary suitable for a controller handoff.\n")
		b.WriteString(input)
		b.WriteString("\nRespond with the single summary line and nothing else.")
	}

	return systemPreamble, b.String()
}

// DescribeStrip renders one strip as the subject block of an analysis prompt
func DescribeStrip(strip strips.FlightStrip) string {
	return fmt.Sprintf("Subject flight: callsign=%s type=%s altitude=%.0fft speed=%.0fkts vertical_rate=%.0fft/min squawk=%s stage=%s",
		strip.Callsign, strip.AircraftType, strip.Altitude, strip.Speed, strip.VerticalRate, strip.Squawk, strip.Stage)
}

func (pb *PromptBuilder) serializeSnapshot(snapshot strips.Snapshot) string {
	limit := len(snapshot.Strips)
	if limit > pb.maxRecords {
		limit = pb.maxRecords
	}

	records := make([]promptRecord, 0, limit)
	for _, strip := range snapshot.Strips[:limit] {
		records = append(records, promptRecord{
			Callsign:     strip.Callsign,
			AircraftType: strip.AircraftType,
			Route:        strip.Route,
			Altitude:     strip.Altitude,
			Speed:        strip.Speed,
			VerticalRate: strip.VerticalRate,
			Squawk:       strip.Squawk,
			Notes:        strip.Notes,
			Stage:        string(strip.Stage),
		})
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		// promptRecord has no unmarshalable fields; this cannot happen
		return "[]"
	}
	return string(out)
}
