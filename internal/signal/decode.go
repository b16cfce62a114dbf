package signal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError describes why a model response could not be turned into a
// Signal. It exists so callers can log the cause; recovery is always the
// fallback Signal.
type DecodeError struct {
	Reason string
	Raw    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("signal decode: %s", e.Reason)
}

// wireSignal is the JSON shape the model is instructed to emit.
type wireSignal struct {
	Sentiment    *float64 `json:"sentiment"`
	Confidence   *float64 `json:"confidence"`
	StageSignal  string   `json:"stage_signal"`
	Budget       *float64 `json:"budget"`
	Concerns     []string `json:"concerns"`
	AlertManager struct {
		Needed bool   `json:"needed"`
		Reason string `json:"reason"`
	} `json:"alert_manager"`
	Summary string `json:"summary"`
}

// decodeSignal extracts the first balanced JSON object from raw model output
// and maps it onto a bounded Signal. Wrapping noise (markdown fences, prose
// before or after the object) is tolerated.
func decodeSignal(kind Kind, raw string) (Signal, error) {
	stripped := stripWrapping(raw)

	block, ok := firstBalancedObject(stripped)
	if !ok {
		return Signal{}, &DecodeError{Reason: "no balanced JSON object found", Raw: raw}
	}

	var wire wireSignal
	if err := json.Unmarshal([]byte(block), &wire); err != nil {
		return Signal{}, &DecodeError{Reason: "invalid JSON: " + err.Error(), Raw: raw}
	}

	sig := Signal{
		Kind:         kind,
		Sentiment:    neutralSentiment,
		Confidence:   neutralConfidence,
		StageKeyword: strings.ToLower(strings.TrimSpace(wire.StageSignal)),
		Concerns:     []string{},
		AlertNeeded:  wire.AlertManager.Needed,
		AlertReason:  strings.TrimSpace(wire.AlertManager.Reason),
		Summary:      strings.TrimSpace(wire.Summary),
	}

	if wire.Sentiment != nil {
		sig.Sentiment = clamp01(*wire.Sentiment)
	}
	if wire.Confidence != nil {
		sig.Confidence = clamp01(*wire.Confidence)
	}
	if wire.Budget != nil && *wire.Budget > 0 {
		sig.Budget = *wire.Budget
		sig.HasBudget = true
	}
	for _, concern := range wire.Concerns {
		if trimmed := strings.TrimSpace(concern); trimmed != "" {
			sig.Concerns = append(sig.Concerns, trimmed)
		}
	}

	return sig, nil
}

// stripWrapping removes markdown code fences the model tends to wrap JSON in.
func stripWrapping(raw string) string {
	out := strings.TrimSpace(raw)
	for _, marker := range []string{"```json", "```JSON", "```"} {
		out = strings.ReplaceAll(out, marker, "")
	}
	return strings.TrimSpace(out)
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', honoring JSON string literals and escapes.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
