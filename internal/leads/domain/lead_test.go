package domain

import (
	"testing"
	"time"
)

func TestClampScore(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{140, 100},
	}

	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestUnresponsiveDays(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reply := now.AddDate(0, 0, -9)

	lead := Lead{CreatedAt: now.AddDate(0, 0, -30), LastReplyAt: &reply}
	if got := lead.UnresponsiveDays(now); got != 9 {
		t.Errorf("UnresponsiveDays = %d, want 9", got)
	}

	never := Lead{CreatedAt: now.AddDate(0, 0, -3)}
	if got := never.UnresponsiveDays(now); got != 3 {
		t.Errorf("UnresponsiveDays (no reply) = %d, want 3", got)
	}

	future := Lead{CreatedAt: now.Add(time.Hour)}
	if got := future.UnresponsiveDays(now); got != 0 {
		t.Errorf("UnresponsiveDays (future created_at) = %d, want 0", got)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusMeetingScheduled, StatusProposal, StatusNegotiation, StatusWon, StatusLost} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	if ValidStatus("archived") {
		t.Error("unknown status accepted")
	}
}
