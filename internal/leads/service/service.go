// Package service implements lead management: intake, the pipeline status,
// and inbound reply handling, which is where conversation signals enter the
// system.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	agentdomain "salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/queue"
	dealdomain "salesdesk_backend/internal/deals/domain"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/signal"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/phone"

	"github.com/google/uuid"
)

// replySentimentThreshold gates follow-up drafting: replies below it get an
// approval-gated draft, replies at or above it are only logged.
const replySentimentThreshold = 0.6

// Store is the lead persistence surface.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	FindByEmail(ctx context.Context, email string) (domain.Lead, error)
	List(ctx context.Context, params repository.ListLeadsParams) ([]domain.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	RecordReply(ctx context.Context, id uuid.UUID, sentiment float64, at time.Time) error
}

// SignalExtractor interprets free text and drafts replies.
type SignalExtractor interface {
	Extract(ctx context.Context, kind signal.Kind, text string, sctx signal.Context) signal.Signal
	GenerateText(ctx context.Context, userPrompt string, maxTokens int32) (string, error)
}

// DealEngine is the stage engine a reply's signal is fed into.
type DealEngine interface {
	ApplySignal(ctx context.Context, lead domain.Lead, sig signal.Signal) (*dealdomain.Deal, error)
}

// ActionProposer enqueues gated agent actions.
type ActionProposer interface {
	Propose(ctx context.Context, params queue.ProposeParams) (agentdomain.Action, error)
}

type Service struct {
	store     Store
	extractor SignalExtractor
	deals     DealEngine
	actions   ActionProposer
	bus       events.Bus
	log       *logger.Logger
}

func New(store Store, extractor SignalExtractor, deals DealEngine, actions ActionProposer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		deals:     deals,
		actions:   actions,
		bus:       bus,
		log:       log,
	}
}

type CreateLeadParams struct {
	Name    string
	Email   *string
	Phone   *string
	Company *string
}

// Create persists a new lead. Phone numbers are normalized to E.164 where
// possible; an unparseable number is stored as given.
func (s *Service) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	repoParams := repository.CreateLeadParams{
		Name:    params.Name,
		Email:   params.Email,
		Company: params.Company,
	}

	if params.Phone != nil && *params.Phone != "" {
		normalized := phone.NormalizeE164(*params.Phone)
		repoParams.Phone = &normalized
	}

	lead, err := s.store.Create(ctx, repoParams)
	if err != nil {
		return domain.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID})
	return lead, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

func (s *Service) List(ctx context.Context, params repository.ListLeadsParams) ([]domain.Lead, error) {
	if params.Status != nil && !domain.ValidStatus(*params.Status) {
		return nil, apperr.Validation("unknown lead status " + string(*params.Status))
	}
	return s.store.List(ctx, params)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Lead, error) {
	if !domain.ValidStatus(status) {
		return domain.Lead{}, apperr.Validation("unknown lead status " + string(status))
	}

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, err
	}

	return s.GetByID(ctx, id)
}

// ReplyOutcome reports what one inbound reply caused.
type ReplyOutcome struct {
	Lead           domain.Lead
	Signal         signal.Signal
	Deal           *dealdomain.Deal
	ProposedAction *agentdomain.Action
}

// HandleReply runs the reply pipeline: interpret the text, stamp the lead's
// sentiment, feed the signal into the deal stage engine, and, for a
// negative-leaning reply, draft a follow-up that waits for human approval.
func (s *Service) HandleReply(ctx context.Context, leadID uuid.UUID, subject, body string) (ReplyOutcome, error) {
	lead, err := s.GetByID(ctx, leadID)
	if err != nil {
		return ReplyOutcome{}, err
	}

	sig := s.extractor.Extract(ctx, signal.KindEmailReply, body, signal.Context{
		LeadName:   lead.Name,
		LeadStatus: string(lead.Status),
	})

	now := time.Now().UTC()
	if err := s.store.RecordReply(ctx, lead.ID, sig.Sentiment, now); err != nil {
		return ReplyOutcome{}, fmt.Errorf("record reply: %w", err)
	}
	lead.Sentiment = sig.Sentiment
	lead.LastReplyAt = &now

	deal, err := s.deals.ApplySignal(ctx, lead, sig)
	if err != nil {
		return ReplyOutcome{}, fmt.Errorf("apply signal: %w", err)
	}

	outcome := ReplyOutcome{Lead: lead, Signal: sig, Deal: deal}

	if sig.Sentiment >= replySentimentThreshold {
		s.log.Info("reply handled, no follow-up needed",
			"lead_id", lead.ID.String(), "sentiment", sig.Sentiment)
		return outcome, nil
	}

	action, err := s.proposeFollowup(ctx, lead, subject, body, sig)
	if err != nil {
		return ReplyOutcome{}, fmt.Errorf("propose follow-up: %w", err)
	}
	outcome.ProposedAction = &action

	return outcome, nil
}

func (s *Service) proposeFollowup(ctx context.Context, lead domain.Lead, subject, body string, sig signal.Signal) (agentdomain.Action, error) {
	draft := s.draftFollowup(ctx, lead, body, sig)

	to := ""
	if lead.Email != nil {
		to = *lead.Email
	}
	replySubject := "Re: " + subject
	if subject == "" {
		replySubject = "Following up"
	}

	return s.actions.Propose(ctx, queue.ProposeParams{
		AgentType:        "lead_reply",
		ActionType:       agentdomain.ActionTypeFollowupEmail,
		RequiresApproval: true,
		Data: agentdomain.FollowupEmailPayload{
			LeadID:  lead.ID,
			To:      to,
			Subject: replySubject,
			Body:    draft,
		},
	})
}

// draftFollowup asks the generator for a reply draft. A human approves the
// draft before anything is sent, so a generation failure degrades to an
// empty draft rather than failing the reply pipeline.
func (s *Service) draftFollowup(ctx context.Context, lead domain.Lead, body string, sig signal.Signal) string {
	concerns := "none stated"
	if len(sig.Concerns) > 0 {
		concerns = fmt.Sprintf("%v", sig.Concerns)
	}

	prompt := fmt.Sprintf(
		"Draft a short, professional follow-up email to %s, who replied with reservations (sentiment %.2f, concerns: %s). Address the concerns and suggest a next step. Reply body only, no subject line.\n\nTheir reply:\n%s",
		lead.Name, sig.Sentiment, concerns, body)

	draft, err := s.extractor.GenerateText(ctx, prompt, 512)
	if err != nil {
		s.log.InferenceError("followup_draft", err)
		return ""
	}
	return draft
}
