// Package signal turns unstructured sales text (email replies, live meeting
// transcripts) into bounded structured signals by prompting the external
// text-generation API and strictly decoding what comes back. A parse
// failure is data, not an error: callers always receive a usable Signal.
package signal

// Kind identifies the flavor of text being interpreted.
type Kind string

const (
	KindEmailReply        Kind = "email_reply"
	KindMeetingTranscript Kind = "meeting_transcript"
)

// Signal is the closed, bounded result of interpreting free text.
// Sentiment and Confidence are always within [0,1].
type Signal struct {
	Kind         Kind
	Sentiment    float64
	Confidence   float64
	StageKeyword string
	Budget       float64
	HasBudget    bool
	Concerns     []string
	AlertNeeded  bool
	AlertReason  string
	Summary      string
	// Degraded marks a Signal produced by the fallback path after an
	// inference or decode failure.
	Degraded bool
}

const (
	neutralSentiment  = 0.5
	neutralConfidence = 0.5
)

// Fallback returns the neutral Signal used when inference output cannot be
// interpreted.
func Fallback(kind Kind) Signal {
	return Signal{
		Kind:       kind,
		Sentiment:  neutralSentiment,
		Confidence: neutralConfidence,
		Concerns:   []string{},
		Degraded:   true,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
