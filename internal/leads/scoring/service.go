// Package scoring rescores leads from a fixed set of bounded factors. The
// model is deterministic: the same lead at the same instant always produces
// the same score, which keeps the batch pass idempotent.
package scoring

import (
	"context"
	"fmt"
	"time"

	agentdomain "salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	// baseScore is the neutral starting point; factors add and subtract
	// from it.
	baseScore = 50

	// Contact completeness.
	emailBonus   = 5
	phoneBonus   = 5
	companyBonus = 5

	// Reply recency.
	veryRecentReplyDays  = 3
	recentReplyDays      = 7
	staleReplyDays       = 14
	veryRecentReplyBonus = 15
	recentReplyBonus     = 10
	staleReplyPenalty    = 10
	unresponsivePenalty  = 25

	// Sentiment.
	positiveSentiment        = 0.7
	negativeSentiment        = 0.3
	positiveSentimentBonus   = 10
	negativeSentimentPenalty = 15
)

// statusBonuses rewards progress through the pipeline.
var statusBonuses = map[domain.Status]int{
	domain.StatusContacted:        5,
	domain.StatusQualified:        10,
	domain.StatusMeetingScheduled: 15,
	domain.StatusProposal:         20,
	domain.StatusNegotiation:      25,
	domain.StatusWon:              30,
	domain.StatusLost:             -40,
}

// Score computes a lead's score at the given instant, always within 0..100.
func Score(lead domain.Lead, now time.Time) int {
	score := baseScore

	if lead.Email != nil && *lead.Email != "" {
		score += emailBonus
	}
	if lead.Phone != nil && *lead.Phone != "" {
		score += phoneBonus
	}
	if lead.Company != nil && *lead.Company != "" {
		score += companyBonus
	}

	score += statusBonuses[lead.Status]

	switch days := lead.UnresponsiveDays(now); {
	case days < veryRecentReplyDays:
		score += veryRecentReplyBonus
	case days < recentReplyDays:
		score += recentReplyBonus
	case days <= staleReplyDays:
		// No adjustment in the middle band.
	case days <= 30:
		score -= staleReplyPenalty
	default:
		score -= unresponsivePenalty
	}

	switch {
	case lead.Sentiment > positiveSentiment:
		score += positiveSentimentBonus
	case lead.Sentiment < negativeSentiment:
		score -= negativeSentimentPenalty
	}

	return domain.ClampScore(score)
}

// LeadStore is the persistence surface the batch pass needs.
type LeadStore interface {
	ListAll(ctx context.Context) ([]domain.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int) error
}

// Recorder receives per-entity outcomes; *ledger.Run satisfies it.
type Recorder interface {
	RecordAction(ctx context.Context, entry agentdomain.ActionEntry)
}

type Service struct {
	store LeadStore
	log   *logger.Logger
}

func New(store LeadStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// RescoreAll recomputes every lead's score. A single lead's failure is
// recorded and skipped; only the listing query is fatal to the batch.
func (s *Service) RescoreAll(ctx context.Context, rec Recorder) error {
	leads, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list leads: %w", err)
	}

	now := time.Now().UTC()
	for _, lead := range leads {
		score := Score(lead, now)

		entry := agentdomain.ActionEntry{
			EntityID: lead.ID.String(),
			Action:   "rescore",
			At:       now,
		}

		if score == lead.Score {
			entry.Outcome = "unchanged"
			rec.RecordAction(ctx, entry)
			continue
		}

		if err := s.store.UpdateScore(ctx, lead.ID, score); err != nil {
			entry.Outcome = "failed"
			entry.Error = err.Error()
			rec.RecordAction(ctx, entry)
			continue
		}

		entry.Outcome = "updated"
		rec.RecordAction(ctx, entry)
	}

	return nil
}
