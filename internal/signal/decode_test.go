package signal

import (
	"testing"
)

func TestDecodeSignalPlainObject(t *testing.T) {
	raw := `{"sentiment":0.8,"confidence":0.9,"stage_signal":"Proposal","budget":12000,"concerns":["price"],"alert_manager":{"needed":false,"reason":""},"summary":"Positive reply."}`

	sig, err := decodeSignal(KindEmailReply, raw)
	if err != nil {
		t.Fatalf("decodeSignal returned error: %v", err)
	}

	if sig.Sentiment != 0.8 || sig.Confidence != 0.9 {
		t.Errorf("bounds not preserved: sentiment=%v confidence=%v", sig.Sentiment, sig.Confidence)
	}
	if sig.StageKeyword != "proposal" {
		t.Errorf("stage keyword not lowercased: %q", sig.StageKeyword)
	}
	if !sig.HasBudget || sig.Budget != 12000 {
		t.Errorf("budget not extracted: %v (has=%v)", sig.Budget, sig.HasBudget)
	}
	if len(sig.Concerns) != 1 || sig.Concerns[0] != "price" {
		t.Errorf("concerns = %v", sig.Concerns)
	}
	if sig.Degraded {
		t.Error("clean decode must not be marked degraded")
	}
}

func TestDecodeSignalStripsFencesAndProse(t *testing.T) {
	raw := "Sure! Here is the analysis:\n```json\n{\"sentiment\": 0.2, \"confidence\": 0.7, \"alert_manager\": {\"needed\": true, \"reason\": \"customer is hostile\"}}\n```\nLet me know if you need more."

	sig, err := decodeSignal(KindMeetingTranscript, raw)
	if err != nil {
		t.Fatalf("decodeSignal returned error: %v", err)
	}
	if sig.Sentiment != 0.2 {
		t.Errorf("sentiment = %v, want 0.2", sig.Sentiment)
	}
	if !sig.AlertNeeded || sig.AlertReason != "customer is hostile" {
		t.Errorf("alert not decoded: needed=%v reason=%q", sig.AlertNeeded, sig.AlertReason)
	}
}

func TestDecodeSignalClampsOutOfRangeValues(t *testing.T) {
	raw := `{"sentiment": 3.5, "confidence": -1}`

	sig, err := decodeSignal(KindEmailReply, raw)
	if err != nil {
		t.Fatalf("decodeSignal returned error: %v", err)
	}
	if sig.Sentiment != 1 {
		t.Errorf("sentiment = %v, want clamped 1", sig.Sentiment)
	}
	if sig.Confidence != 0 {
		t.Errorf("confidence = %v, want clamped 0", sig.Confidence)
	}
}

func TestDecodeSignalDefaultsForMissingFields(t *testing.T) {
	sig, err := decodeSignal(KindEmailReply, `{}`)
	if err != nil {
		t.Fatalf("decodeSignal returned error: %v", err)
	}
	if sig.Sentiment != 0.5 || sig.Confidence != 0.5 {
		t.Errorf("missing fields should default neutral, got sentiment=%v confidence=%v", sig.Sentiment, sig.Confidence)
	}
	if sig.HasBudget {
		t.Error("missing budget must not be flagged present")
	}
}

func TestDecodeSignalFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose only", "I could not analyze this conversation."},
		{"unterminated object", `{"sentiment": 0.4,`},
		{"not an object", `[1, 2, 3]`},
	}

	for _, tc := range cases {
		if _, err := decodeSignal(KindEmailReply, tc.raw); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}
}

func TestFirstBalancedObjectHonorsStrings(t *testing.T) {
	block, ok := firstBalancedObject(`noise {"summary": "brace } inside \" string", "x": {"y": 1}} trailing`)
	if !ok {
		t.Fatal("expected a balanced object")
	}
	want := `{"summary": "brace } inside \" string", "x": {"y": 1}}`
	if block != want {
		t.Errorf("block = %q, want %q", block, want)
	}
}
