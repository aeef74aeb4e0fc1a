package assist

import (
	"encoding/json"
	"regexp"
	"strings"
)

// remoteAnalysis is the payload shape the behavior-analysis format contract
// asks the model to emit
type remoteAnalysis struct {
	Status     string   `json:"status"`
	Summary    string   `json:"summary"`
	Concerns   []string `json:"concerns"`
	Confidence float64  `json:"confidence"`
}

// remoteQuery is the payload shape the natural-language-query format
// contract asks the model to emit
type remoteQuery struct {
	Response          string   `json:"response"`
	MatchingCallsigns []string `json:"matching_callsigns"`
	Insights          []string `json:"insights"`
}

// extractJSON locates the first well-formed brace-delimited payload in the
// text. Models routinely wrap JSON in prose or markdown fences, so this
// scans for a balanced object rather than unmarshaling the whole response.
func extractJSON(text string) ([]byte, error) {
	cleaned := stripFences(text)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return nil, &ParseFailure{Reason: "no JSON object in response"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := []byte(cleaned[start : i+1])
				if !json.Valid(candidate) {
					return nil, &ParseFailure{Reason: "malformed JSON object in response"}
				}
				return candidate, nil
			}
		}
	}

	return nil, &ParseFailure{Reason: "unterminated JSON object in response"}
}

// stripFences removes markdown code fences around a payload
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// parseAnalysis extracts a structured analysis payload from response text
func parseAnalysis(text string) (remoteAnalysis, error) {
	var payload remoteAnalysis

	raw, err := extractJSON(text)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, &ParseFailure{Reason: "analysis payload does not decode: " + err.Error()}
	}
	return payload, nil
}

// parseQuery extracts a structured query payload from response text
func parseQuery(text string) (remoteQuery, error) {
	var payload remoteQuery

	raw, err := extractJSON(text)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, &ParseFailure{Reason: "query payload does not decode: " + err.Error()}
	}
	return payload, nil
}

// actionCallPattern matches one action call per line, case-insensitive on
// the function name. Argument splitting is kind-specific because note text
// may itself contain commas.
var actionCallPattern = regexp.MustCompile(`(?i)^\s*(movestrip|updatestripnotes|updatestripsquawk)\s*\(\s*(.*?)\s*\)\s*[;.]?\s*$`)

// ParseActions scans text line by line for recognized action calls and
// returns them in order of appearance. Order matters: a later action on the
// same subject supersedes an earlier one at dispatch time. Non-empty lines
// matching no pattern come back as diagnostics, never as errors.
func ParseActions(text string) ([]ActionInvocation, []string) {
	var invocations []ActionInvocation
	var unmatched []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		m := actionCallPattern.FindStringSubmatch(trimmed)
		if m == nil {
			unmatched = append(unmatched, trimmed)
			continue
		}

		inv, ok := buildInvocation(strings.ToLower(m[1]), m[2])
		if !ok {
			unmatched = append(unmatched, trimmed)
			continue
		}
		invocations = append(invocations, inv)
	}

	return invocations, unmatched
}

func buildInvocation(name, rawArgs string) (ActionInvocation, bool) {
	subject, rest, found := strings.Cut(rawArgs, ",")
	if !found {
		return ActionInvocation{}, false
	}

	subject = unquote(subject)
	rest = strings.TrimSpace(rest)
	if subject == "" || rest == "" {
		return ActionInvocation{}, false
	}

	switch name {
	case "movestrip":
		return ActionInvocation{
			Kind:      ActionMoveStrip,
			Subject:   subject,
			Arguments: []string{unquote(rest)},
		}, true
	case "updatestripnotes":
		// Note text keeps everything after the first comma, commas included
		return ActionInvocation{
			Kind:      ActionUpdateNotes,
			Subject:   subject,
			Arguments: []string{unquote(rest)},
		}, true
	case "updatestripsquawk":
		return ActionInvocation{
			Kind:      ActionUpdateSquawk,
			Subject:   subject,
			Arguments: []string{unquote(rest)},
		}, true
	}
	return ActionInvocation{}, false
}

// unquote trims whitespace and one layer of surrounding quote characters
func unquote(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`, "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
