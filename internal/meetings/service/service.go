// Package service implements the meeting lifecycle controller: the agent
// prepares for, joins, live-analyzes, and completes meetings, escalating to
// a human manager when a conversation goes badly.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	agentdomain "salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/queue"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/meetings/domain"
	"salesdesk_backend/internal/meetings/repository"
	"salesdesk_backend/internal/signal"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// confidenceAlertThreshold: an analysis below it escalates to a manager even
// when the signal itself does not request escalation.
const confidenceAlertThreshold = 0.5

// Store is the meeting persistence surface.
type Store interface {
	Create(ctx context.Context, params repository.CreateMeetingParams) (domain.Meeting, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Meeting, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Meeting, error)
	MarkPrepared(ctx context.Context, id uuid.UUID, notes string) error
	MarkJoined(ctx context.Context, id uuid.UUID, at time.Time) error
	SaveAnalysis(ctx context.Context, id uuid.UUID, analysis domain.Analysis, alert bool, reason *string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, outcome, summary string) error
}

// LeadReader resolves the lead a meeting belongs to, for prompt context.
type LeadReader interface {
	Name(ctx context.Context, leadID uuid.UUID) (name, status string, err error)
}

// SignalExtractor interprets transcripts and generates free text.
type SignalExtractor interface {
	Extract(ctx context.Context, kind signal.Kind, text string, sctx signal.Context) signal.Signal
	GenerateText(ctx context.Context, userPrompt string, maxTokens int32) (string, error)
}

// ActionProposer enqueues manager alerts.
type ActionProposer interface {
	Propose(ctx context.Context, params queue.ProposeParams) (agentdomain.Action, error)
}

type Service struct {
	store     Store
	leads     LeadReader
	extractor SignalExtractor
	actions   ActionProposer
	bus       events.Bus
	log       *logger.Logger
}

func New(store Store, leads LeadReader, extractor SignalExtractor, actions ActionProposer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		leads:     leads,
		extractor: extractor,
		actions:   actions,
		bus:       bus,
		log:       log,
	}
}

func (s *Service) Schedule(ctx context.Context, leadID uuid.UUID, title string, at *time.Time) (domain.Meeting, error) {
	if _, _, err := s.leads.Name(ctx, leadID); err != nil {
		return domain.Meeting{}, err
	}
	return s.store.Create(ctx, repository.CreateMeetingParams{LeadID: leadID, Title: title, ScheduledAt: at})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Meeting, error) {
	meeting, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Meeting{}, apperr.NotFound("meeting not found")
	}
	return meeting, err
}

func (s *Service) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Meeting, error) {
	return s.store.ListByLead(ctx, leadID)
}

// Prepare generates agent notes for an upcoming meeting. An inference
// failure surfaces to the caller and the meeting stays scheduled.
func (s *Service) Prepare(ctx context.Context, id uuid.UUID) (domain.Meeting, error) {
	meeting, err := s.Get(ctx, id)
	if err != nil {
		return domain.Meeting{}, err
	}
	if !meeting.Status.CanPrepare() {
		return domain.Meeting{}, apperr.Conflict("meeting is " + string(meeting.Status) + ", only scheduled meetings can be prepared")
	}

	leadName, leadStatus, err := s.leads.Name(ctx, meeting.LeadID)
	if err != nil {
		return domain.Meeting{}, err
	}

	prompt := fmt.Sprintf(
		"Write concise preparation notes for an upcoming sales meeting titled %q with %s (lead status: %s). Cover likely goals, talking points, and questions to ask. Plain text.",
		meeting.Title, leadName, leadStatus)

	notes, err := s.extractor.GenerateText(ctx, prompt, 1024)
	if err != nil {
		return domain.Meeting{}, apperr.Wrap(apperr.KindUnavailable, "generate preparation notes", err)
	}

	if err := s.transition(s.store.MarkPrepared(ctx, id, notes)); err != nil {
		return domain.Meeting{}, err
	}
	return s.Get(ctx, id)
}

// Join marks the agent as present and moves the meeting in progress.
// Preparation is optional; joining straight from scheduled is valid.
func (s *Service) Join(ctx context.Context, id uuid.UUID) (domain.Meeting, error) {
	meeting, err := s.Get(ctx, id)
	if err != nil {
		return domain.Meeting{}, err
	}
	if !meeting.Status.CanJoin() {
		return domain.Meeting{}, apperr.Conflict("meeting is " + string(meeting.Status) + ", it cannot be joined")
	}

	if err := s.transition(s.store.MarkJoined(ctx, id, time.Now().UTC())); err != nil {
		return domain.Meeting{}, err
	}
	return s.Get(ctx, id)
}

// AnalyzeResult pairs the updated meeting with the signal the transcript
// produced.
type AnalyzeResult struct {
	Meeting domain.Meeting
	Signal  signal.Signal
}

// Analyze reads the running transcript and overwrites the meeting's
// confidence score and stored analysis. Inference failure degrades to the
// fallback signal; the meeting stays in progress either way. An alert
// (low confidence or explicit escalation) sets the sticky flag and, on the
// first trigger, proposes an auto-handled manager_alert action.
func (s *Service) Analyze(ctx context.Context, id uuid.UUID, transcript string) (AnalyzeResult, error) {
	meeting, err := s.Get(ctx, id)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if !meeting.Status.CanAnalyze() {
		return AnalyzeResult{}, apperr.Conflict("meeting is " + string(meeting.Status) + ", only in-progress meetings can be analyzed")
	}

	leadName, leadStatus, err := s.leads.Name(ctx, meeting.LeadID)
	if err != nil {
		return AnalyzeResult{}, err
	}

	sig := s.extractor.Extract(ctx, signal.KindMeetingTranscript, transcript, signal.Context{
		LeadName:   leadName,
		LeadStatus: leadStatus,
	})

	alert := sig.Confidence < confidenceAlertThreshold || sig.AlertNeeded
	reason := alertReason(sig)

	analysis := domain.Analysis{
		Sentiment:   sig.Sentiment,
		Confidence:  sig.Confidence,
		Summary:     sig.Summary,
		Concerns:    sig.Concerns,
		AlertNeeded: alert,
		AlertReason: reason,
		Degraded:    sig.Degraded,
		At:          time.Now().UTC(),
	}

	var reasonPtr *string
	if alert {
		reasonPtr = &reason
	}
	if err := s.transition(s.store.SaveAnalysis(ctx, id, analysis, alert, reasonPtr)); err != nil {
		return AnalyzeResult{}, err
	}

	// First trigger only: the flag read before this analysis decides
	// whether a new alert action is proposed. Concurrent analyzers may
	// rarely double-propose; the flag itself stays correct because it is
	// OR-combined in the store.
	if alert && !meeting.ManagerAlertTriggered {
		if _, err := s.actions.Propose(ctx, queue.ProposeParams{
			AgentType:  "meeting",
			ActionType: agentdomain.ActionTypeManagerAlert,
			Data: agentdomain.ManagerAlertPayload{
				MeetingID: meeting.ID,
				LeadID:    meeting.LeadID,
				Reason:    reason,
			},
		}); err != nil {
			return AnalyzeResult{}, fmt.Errorf("propose manager alert: %w", err)
		}

		s.bus.Publish(ctx, events.ManagerAlertRaised{
			BaseEvent: events.NewBaseEvent(),
			MeetingID: meeting.ID,
			LeadID:    meeting.LeadID,
			Reason:    reason,
		})
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return AnalyzeResult{}, err
	}
	return AnalyzeResult{Meeting: updated, Signal: sig}, nil
}

// Complete summarizes the conversation and closes the meeting. An inference
// failure surfaces and the meeting stays in progress.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, transcript string) (domain.Meeting, error) {
	meeting, err := s.Get(ctx, id)
	if err != nil {
		return domain.Meeting{}, err
	}
	if !meeting.Status.CanComplete() {
		return domain.Meeting{}, apperr.Conflict("meeting is " + string(meeting.Status) + ", only in-progress meetings can be completed")
	}

	prompt := fmt.Sprintf(
		"Summarize this sales meeting transcript in two or three sentences, focusing on what the prospect wants and agreed next steps.\n\n%s",
		transcript)

	summary, err := s.extractor.GenerateText(ctx, prompt, 512)
	if err != nil {
		return domain.Meeting{}, apperr.Wrap(apperr.KindUnavailable, "generate meeting summary", err)
	}

	if err := s.transition(s.store.MarkCompleted(ctx, id, outcomeFor(meeting), summary)); err != nil {
		return domain.Meeting{}, err
	}
	return s.Get(ctx, id)
}

// outcomeFor classifies the finished meeting from its last confidence
// reading.
func outcomeFor(meeting domain.Meeting) string {
	switch {
	case meeting.AIAgentConfidenceScore >= 0.7:
		return "positive"
	case meeting.AIAgentConfidenceScore >= 0.4:
		return "neutral"
	default:
		return "at_risk"
	}
}

func alertReason(sig signal.Signal) string {
	if sig.AlertNeeded && sig.AlertReason != "" {
		return sig.AlertReason
	}
	if sig.Confidence < confidenceAlertThreshold {
		return fmt.Sprintf("confidence dropped to %.2f", sig.Confidence)
	}
	return "escalation requested"
}

func (s *Service) transition(err error) error {
	if errors.Is(err, repository.ErrInvalidTransition) {
		return apperr.Conflict("meeting status changed concurrently")
	}
	return err
}
