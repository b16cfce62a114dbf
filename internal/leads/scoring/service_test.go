package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	agentdomain "salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestScoreBounds(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)

	best := domain.Lead{
		Email:       strPtr("a@b.com"),
		Phone:       strPtr("+15551234567"),
		Company:     strPtr("Acme"),
		Status:      domain.StatusWon,
		Sentiment:   0.9,
		LastReplyAt: &recent,
		CreatedAt:   now.AddDate(0, 0, -60),
	}
	if got := Score(best, now); got != 100 {
		t.Errorf("best-case score = %d, want clamped 100", got)
	}

	worst := domain.Lead{
		Status:    domain.StatusLost,
		Sentiment: 0.1,
		CreatedAt: now.AddDate(0, 0, -90),
	}
	if got := Score(worst, now); got != 0 {
		t.Errorf("worst-case score = %d, want clamped 0", got)
	}
}

func TestScoreFactors(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -10)

	cases := []struct {
		name string
		lead domain.Lead
		want int
	}{
		{
			"bare new lead, 10 days silent",
			domain.Lead{Status: domain.StatusNew, Sentiment: 0.5, CreatedAt: created},
			50,
		},
		{
			"qualified with email and fresh reply",
			domain.Lead{
				Email: strPtr("x@y.com"), Status: domain.StatusQualified, Sentiment: 0.5,
				CreatedAt: created, LastReplyAt: timePtr(now.AddDate(0, 0, -1)),
			},
			80,
		},
		{
			"negotiation gone quiet for 20 days",
			domain.Lead{
				Status: domain.StatusNegotiation, Sentiment: 0.5,
				CreatedAt: now.AddDate(0, 0, -60), LastReplyAt: timePtr(now.AddDate(0, 0, -20)),
			},
			65,
		},
		{
			"negative sentiment drags down",
			domain.Lead{Status: domain.StatusContacted, Sentiment: 0.2, CreatedAt: created},
			40,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.lead, now); got != tc.want {
				t.Errorf("Score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	now := time.Now()
	lead := domain.Lead{Status: domain.StatusQualified, Sentiment: 0.8, CreatedAt: now.AddDate(0, 0, -5)}

	first := Score(lead, now)
	for i := 0; i < 10; i++ {
		if got := Score(lead, now); got != first {
			t.Fatalf("score not stable: %d then %d", first, got)
		}
	}
}

type fakeLeadStore struct {
	leads      []domain.Lead
	listErr    error
	updateErr  map[uuid.UUID]error
	newScores  map[uuid.UUID]int
}

func (f *fakeLeadStore) ListAll(_ context.Context) ([]domain.Lead, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.leads, nil
}

func (f *fakeLeadStore) UpdateScore(_ context.Context, id uuid.UUID, score int) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	if f.newScores == nil {
		f.newScores = make(map[uuid.UUID]int)
	}
	f.newScores[id] = score
	return nil
}

type memoryRecorder struct {
	entries []agentdomain.ActionEntry
}

func (m *memoryRecorder) RecordAction(_ context.Context, entry agentdomain.ActionEntry) {
	m.entries = append(m.entries, entry)
}

func TestRescoreAllRecordsPerLeadOutcomes(t *testing.T) {
	now := time.Now()
	unchanged := domain.Lead{ID: uuid.New(), Status: domain.StatusNew, Sentiment: 0.5, Score: 50, CreatedAt: now.AddDate(0, 0, -10)}
	changed := domain.Lead{ID: uuid.New(), Status: domain.StatusQualified, Sentiment: 0.8, Score: 10, CreatedAt: now.AddDate(0, 0, -10)}
	failing := domain.Lead{ID: uuid.New(), Status: domain.StatusProposal, Sentiment: 0.8, Score: 10, CreatedAt: now.AddDate(0, 0, -10)}

	store := &fakeLeadStore{
		leads:     []domain.Lead{unchanged, changed, failing},
		updateErr: map[uuid.UUID]error{failing.ID: errors.New("row gone")},
	}
	svc := New(store, logger.New("test"))

	rec := &memoryRecorder{}
	if err := svc.RescoreAll(context.Background(), rec); err != nil {
		t.Fatalf("RescoreAll: %v", err)
	}

	if len(rec.entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(rec.entries))
	}
	outcomes := map[string]string{}
	for _, e := range rec.entries {
		outcomes[e.EntityID] = e.Outcome
	}
	if outcomes[unchanged.ID.String()] != "unchanged" {
		t.Errorf("unchanged lead outcome = %s", outcomes[unchanged.ID.String()])
	}
	if outcomes[changed.ID.String()] != "updated" {
		t.Errorf("changed lead outcome = %s", outcomes[changed.ID.String()])
	}
	if outcomes[failing.ID.String()] != "failed" {
		t.Errorf("failing lead outcome = %s", outcomes[failing.ID.String()])
	}

	if _, ok := store.newScores[changed.ID]; !ok {
		t.Error("changed lead score not persisted")
	}
}

func TestRescoreAllListFailureIsFatal(t *testing.T) {
	store := &fakeLeadStore{listErr: errors.New("connection refused")}
	svc := New(store, logger.New("test"))

	if err := svc.RescoreAll(context.Background(), &memoryRecorder{}); err == nil {
		t.Fatal("expected fatal error")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
