package assist

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oselight/stripdeck/internal/strips"
)

// FallbackConfidence is deliberately lower than a typical remote result so
// consumers can tell a degraded assessment from a full one.
const FallbackConfidence = 0.60

// Fallback rule thresholds
const (
	lowAltitudeFt      = 1000
	lowAltSpeedKts     = 200
	rapidVerticalFtMin = 2000
	veryHighAltitudeFt = 40000
	excessiveSpeedKts  = 500
)

// Concern strings produced by the fallback rules
const (
	ConcernLowAltHighSpeed  = "low altitude / high speed"
	ConcernRapidVertical    = "rapid climb/descent"
	ConcernVeryHighAltitude = "very high altitude - possible anomaly"
	ConcernExcessiveSpeed   = "excessive speed"
)

// AnalyzeLocally is the deterministic substitute for a remote analysis
// call. It is the availability guarantee of the assist service: pure, no
// I/O, total over any strip including ones with missing fields, and it
// always returns a well-formed result.
func AnalyzeLocally(strip strips.FlightStrip) AnalysisResult {
	concerns := []string{}

	if strip.Altitude > 0 && strip.Altitude < lowAltitudeFt && strip.Speed > lowAltSpeedKts {
		concerns = append(concerns, ConcernLowAltHighSpeed)
	}
	if math.Abs(strip.VerticalRate) > rapidVerticalFtMin {
		concerns = append(concerns, ConcernRapidVertical)
	}
	if strip.Altitude > veryHighAltitudeFt {
		concerns = append(concerns, ConcernVeryHighAltitude)
	}
	if strip.Speed > excessiveSpeedKts {
		concerns = append(concerns, ConcernExcessiveSpeed)
	}

	var status Status
	switch {
	case len(concerns) >= 2:
		status = StatusCritical
	case len(concerns) == 1:
		status = StatusConcerning
	default:
		status = StatusNormal
	}

	callsign := strip.Callsign
	if callsign == "" {
		callsign = "UNKNOWN"
	}

	var summary string
	if len(concerns) > 0 {
		summary = fmt.Sprintf("Flight %s showing %d concern(s): %s", callsign, len(concerns), concerns[0])
	} else {
		summary = fmt.Sprintf("Flight %s operating normally at %.0fft, %.0fkts", callsign, strip.Altitude, strip.Speed)
	}

	return AnalysisResult{
		Status:     status,
		Summary:    summary,
		Concerns:   concerns,
		Confidence: FallbackConfidence,
		Timestamp:  time.Now().UTC(),
		ProducedBy: ProducedByFallback,
	}
}

// FilterLocally answers a natural-language query with keyword-driven
// filtering when the inference service is unavailable. Crude on purpose:
// it preserves availability, not answer quality.
func FilterLocally(query string, snapshot strips.Snapshot) QueryResult {
	q := strings.ToLower(query)
	matches := []strips.FlightStrip{}

	for _, strip := range snapshot.Strips {
		if matchesQuery(q, strip) {
			matches = append(matches, strip)
		}
	}

	var response string
	if len(matches) > 0 {
		response = fmt.Sprintf("Found %d aircraft matching your query using local filtering.", len(matches))
	} else {
		response = "No aircraft match the query using local filtering."
	}

	return QueryResult{
		Response:   response,
		Matches:    matches,
		Insights:   []string{"remote analysis unavailable, using keyword filtering"},
		ProducedBy: ProducedByFallback,
	}
}

func matchesQuery(q string, strip strips.FlightStrip) bool {
	switch {
	case strings.Contains(q, "high altitude") || strings.Contains(q, "above"):
		return strip.Altitude > 30000
	case strings.Contains(q, "low altitude") || strings.Contains(q, "below"):
		return strip.Altitude < 10000
	case strings.Contains(q, "fast") || strings.Contains(q, "high speed"):
		return strip.Speed > 400
	case strings.Contains(q, "slow") || strings.Contains(q, "low speed"):
		return strip.Speed < 200
	case strings.Contains(q, "descend"):
		return strip.VerticalRate < -500
	case strings.Contains(q, "climb"):
		return strip.VerticalRate > 500
	case strings.Contains(q, "critical") || strings.Contains(q, "emergency") || strings.Contains(q, "concern"):
		return len(AnalyzeLocally(strip).Concerns) > 0
	}
	// No recognized filter keyword: include everything
	return true
}

// SummarizeLocally renders the status-templated one-line incident summary
// used when the inference service cannot produce one.
func SummarizeLocally(strip strips.FlightStrip, analysis AnalysisResult) string {
	callsign := strip.Callsign
	if callsign == "" {
		callsign = "UNKNOWN"
	}

	switch analysis.Status {
	case StatusCritical:
		return fmt.Sprintf("CRITICAL: Flight %s - %s", callsign, analysis.Summary)
	case StatusConcerning:
		return fmt.Sprintf("ALERT: Flight %s - %s", callsign, analysis.Summary)
	case StatusMonitoring:
		return fmt.Sprintf("MONITORING: Flight %s - %s", callsign, analysis.Summary)
	default:
		return fmt.Sprintf("NORMAL: Flight %s - %s", callsign, analysis.Summary)
	}
}
