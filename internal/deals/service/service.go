// Package service implements the deal stage engine: signal-driven stage
// transitions and the periodic probability recompute pass.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	agentdomain "salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/deals/domain"
	"salesdesk_backend/internal/deals/repository"
	"salesdesk_backend/internal/events"
	leadsdomain "salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/profile"
	"salesdesk_backend/internal/signal"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// dealCreationScoreThreshold is the lead score at which a deal is opened even
// without an explicit stage keyword.
const dealCreationScoreThreshold = 70

// Store is the persistence surface of the engine.
type Store interface {
	Create(ctx context.Context, params repository.CreateDealParams) (domain.Deal, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Deal, error)
	FindActiveByLead(ctx context.Context, leadID uuid.UUID) (domain.Deal, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Deal, error)
	List(ctx context.Context, limit int) ([]domain.Deal, error)
	ListOpen(ctx context.Context) ([]repository.OpenDeal, error)
	ApplyTransition(ctx context.Context, id uuid.UUID, stage domain.Stage, probability float64, at time.Time) error
	UpdateProbability(ctx context.Context, id uuid.UUID, probability float64) error
	Close(ctx context.Context, id uuid.UUID, stage domain.Stage, probability float64, closeDate time.Time) error
}

// TextGenerator drafts free text; the engine uses it to estimate a deal value
// when the signal carries no budget.
type TextGenerator interface {
	GenerateText(ctx context.Context, userPrompt string, maxTokens int32) (string, error)
}

// Recorder receives per-entity outcomes during a batch pass. *ledger.Run
// satisfies it.
type Recorder interface {
	RecordAction(ctx context.Context, entry agentdomain.ActionEntry)
}

type Service struct {
	store   Store
	gen     TextGenerator
	profile profile.Profile
	bus     events.Bus
	log     *logger.Logger
}

func New(store Store, gen TextGenerator, p profile.Profile, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, gen: gen, profile: p, bus: bus, log: log}
}

// ApplySignal feeds one interpreted signal into the lead's pipeline. It may
// create a deal, move one through the transition table, or do nothing; the
// returned deal is nil when no deal exists and the creation rule did not
// fire. Closed deals are absorbing and never modified.
func (s *Service) ApplySignal(ctx context.Context, lead leadsdomain.Lead, sig signal.Signal) (*domain.Deal, error) {
	deal, err := s.store.FindActiveByLead(ctx, lead.ID)
	created := false
	switch {
	case errors.Is(err, repository.ErrNoActiveDeal):
		if !shouldCreateDeal(lead, sig) {
			return nil, nil
		}
		deal, err = s.createDeal(ctx, lead, sig)
		if err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, err
	}

	oldStage := deal.Stage
	newStage := deal.Stage
	base := deal.Probability
	if stage, stageBase, ok := domain.TransitionForKeyword(sig.StageKeyword); ok {
		newStage = stage
		base = stageBase
	}

	probability := domain.BlendSentiment(base, sig.Sentiment)
	now := time.Now().UTC()

	if err := s.store.ApplyTransition(ctx, deal.ID, newStage, probability, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Closed by a concurrent writer between read and write; the
			// absorbing state wins.
			return &deal, nil
		}
		return nil, err
	}

	deal.Stage = newStage
	deal.Probability = probability
	deal.LastActivityAt = now

	if created {
		oldStage = ""
	}
	if newStage != oldStage {
		s.bus.Publish(ctx, events.DealStageChanged{
			BaseEvent: events.NewBaseEvent(),
			DealID:    deal.ID,
			LeadID:    lead.ID,
			OldStage:  string(oldStage),
			NewStage:  string(newStage),
		})
	}

	return &deal, nil
}

// shouldCreateDeal is the creation rule: an explicit stage keyword always
// opens a deal; otherwise a strong score on an early-pipeline lead does.
func shouldCreateDeal(lead leadsdomain.Lead, sig signal.Signal) bool {
	if _, _, ok := domain.TransitionForKeyword(sig.StageKeyword); ok {
		return true
	}
	if lead.Score < dealCreationScoreThreshold {
		return false
	}
	switch lead.Status {
	case leadsdomain.StatusNew, leadsdomain.StatusContacted, leadsdomain.StatusQualified:
		return true
	}
	return false
}

func (s *Service) createDeal(ctx context.Context, lead leadsdomain.Lead, sig signal.Signal) (domain.Deal, error) {
	value := sig.Budget
	if !sig.HasBudget {
		value = s.estimateValue(ctx, lead)
	}
	if value < 0 {
		value = 0
	}

	// Stored unblended; ApplySignal's shared transition step applies the
	// sentiment adjustment exactly once.
	return s.store.Create(ctx, repository.CreateDealParams{
		LeadID:      lead.ID,
		Stage:       domain.StageProspect,
		Value:       value,
		Probability: domain.InitialProbability,
	})
}

// estimateValue asks the generator for a plausible deal size; any failure
// falls back to the profile default.
func (s *Service) estimateValue(ctx context.Context, lead leadsdomain.Lead) float64 {
	company := ""
	if lead.Company != nil {
		company = *lead.Company
	}

	prompt := fmt.Sprintf(
		"Estimate a realistic annual deal value in plain dollars for selling %s to %q (industry: %s). Respond with a single number, no currency symbol, no explanation.",
		s.profile.ProductName, company, s.profile.TargetIndustry)

	raw, err := s.gen.GenerateText(ctx, prompt, 32)
	if err != nil {
		s.log.InferenceError("deal_value_estimate", err)
		return s.profile.DefaultDealValue
	}

	value, err := parseAmount(raw)
	if err != nil {
		s.log.InferenceError("deal_value_parse", err)
		return s.profile.DefaultDealValue
	}
	return value
}

// parseAmount pulls the first numeric token out of generator output,
// tolerating currency symbols and thousands separators.
func parseAmount(raw string) (float64, error) {
	for _, field := range strings.Fields(raw) {
		cleaned := strings.Trim(field, "$€.,;:")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil && v >= 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no numeric value in %q", raw)
}

// RecomputeOpenDeals is the pipeline agent's batch body: derive every open
// deal's probability from stage baseline, staleness and lead sentiment.
// Per-deal failures are recorded and skipped; only the listing query is fatal.
func (s *Service) RecomputeOpenDeals(ctx context.Context, rec Recorder) error {
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open deals: %w", err)
	}

	now := time.Now().UTC()
	for _, od := range open {
		daysInactive := int(now.Sub(od.Deal.LastActivityAt).Hours() / 24)
		probability := domain.Recompute(od.Deal.Stage, daysInactive, od.LeadSentiment)

		entry := agentdomain.ActionEntry{
			EntityID: od.Deal.ID.String(),
			Action:   "recompute_probability",
			At:       now,
		}

		if probability == od.Deal.Probability {
			entry.Outcome = "unchanged"
			rec.RecordAction(ctx, entry)
			continue
		}

		if err := s.store.UpdateProbability(ctx, od.Deal.ID, probability); err != nil {
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

// CloseDeal moves a deal into a terminal stage. Closing an already closed
// deal is an invariant violation, not an idempotent no-op.
func (s *Service) CloseDeal(ctx context.Context, id uuid.UUID, won bool) (domain.Deal, error) {
	deal, err := s.GetDeal(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}
	if deal.Stage.Terminal() {
		return domain.Deal{}, apperr.Conflict("deal is already " + string(deal.Stage))
	}

	stage := domain.StageClosedLost
	probability := 0.0
	if won {
		stage = domain.StageClosedWon
		probability = 1.0
	}

	if err := s.store.Close(ctx, id, stage, probability, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Deal{}, apperr.Conflict("deal was closed concurrently")
		}
		return domain.Deal{}, err
	}

	s.bus.Publish(ctx, events.DealStageChanged{
		BaseEvent: events.NewBaseEvent(),
		DealID:    deal.ID,
		LeadID:    deal.LeadID,
		OldStage:  string(deal.Stage),
		NewStage:  string(stage),
	})

	return s.GetDeal(ctx, id)
}

func (s *Service) GetDeal(ctx context.Context, id uuid.UUID) (domain.Deal, error) {
	deal, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Deal{}, apperr.NotFound("deal not found")
	}
	return deal, err
}

func (s *Service) ListDealsByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Deal, error) {
	return s.store.ListByLead(ctx, leadID)
}

func (s *Service) ListDeals(ctx context.Context, limit int) ([]domain.Deal, error) {
	return s.store.List(ctx, limit)
}
