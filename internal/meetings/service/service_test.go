package service

import (
	"context"
	"errors"
	"testing"
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

type fakeStore struct {
	meetings map[uuid.UUID]domain.Meeting
}

func newFakeStore() *fakeStore {
	return &fakeStore{meetings: make(map[uuid.UUID]domain.Meeting)}
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateMeetingParams) (domain.Meeting, error) {
	m := domain.Meeting{
		ID:          uuid.New(),
		LeadID:      params.LeadID,
		Title:       params.Title,
		ScheduledAt: params.ScheduledAt,
		Status:      domain.StatusScheduled,
		CreatedAt:   time.Now(),
	}
	f.meetings[m.ID] = m
	return m, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return domain.Meeting{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) ListByLead(_ context.Context, leadID uuid.UUID) ([]domain.Meeting, error) {
	out := make([]domain.Meeting, 0)
	for _, m := range f.meetings {
		if m.LeadID == leadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkPrepared(_ context.Context, id uuid.UUID, notes string) error {
	m, ok := f.meetings[id]
	if !ok || !m.Status.CanPrepare() {
		return repository.ErrInvalidTransition
	}
	m.Status = domain.StatusPrepared
	m.AgentNotes = &notes
	f.meetings[id] = m
	return nil
}

func (f *fakeStore) MarkJoined(_ context.Context, id uuid.UUID, at time.Time) error {
	m, ok := f.meetings[id]
	if !ok || !m.Status.CanJoin() {
		return repository.ErrInvalidTransition
	}
	m.Status = domain.StatusInProgress
	m.AgentJoinedAt = &at
	f.meetings[id] = m
	return nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, id uuid.UUID, analysis domain.Analysis, alert bool, reason *string) error {
	m, ok := f.meetings[id]
	if !ok || !m.Status.CanAnalyze() {
		return repository.ErrInvalidTransition
	}
	m.AIAgentConfidenceScore = analysis.Confidence
	m.LastAnalysis = &analysis
	// Sticky OR, as the SQL does it.
	if !m.ManagerAlertTriggered && alert {
		m.ManagerAlertTriggered = true
		m.ManagerAlertReason = reason
	}
	f.meetings[id] = m
	return nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, outcome, summary string) error {
	m, ok := f.meetings[id]
	if !ok || !m.Status.CanComplete() {
		return repository.ErrInvalidTransition
	}
	m.Status = domain.StatusCompleted
	m.Outcome = &outcome
	m.ConversationSummary = &summary
	f.meetings[id] = m
	return nil
}

type fakeLeadReader struct{}

func (fakeLeadReader) Name(_ context.Context, _ uuid.UUID) (string, string, error) {
	return "Morgan Lee", "qualified", nil
}

type fakeExtractor struct {
	signals []signal.Signal
	calls   int

	text    string
	textErr error
}

func (f *fakeExtractor) Extract(_ context.Context, kind signal.Kind, _ string, _ signal.Context) signal.Signal {
	sig := f.signals[f.calls%len(f.signals)]
	f.calls++
	sig.Kind = kind
	return sig
}

func (f *fakeExtractor) GenerateText(_ context.Context, _ string, _ int32) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

type fakeProposer struct {
	proposed []queue.ProposeParams
}

func (f *fakeProposer) Propose(_ context.Context, params queue.ProposeParams) (agentdomain.Action, error) {
	f.proposed = append(f.proposed, params)
	return agentdomain.Action{ID: uuid.New(), ActionType: params.ActionType, Status: agentdomain.ActionStatusAutoHandled}, nil
}

func newTestService(store Store, ex SignalExtractor, proposer ActionProposer) *Service {
	log := logger.New("test")
	return New(store, fakeLeadReader{}, ex, proposer, events.NewInMemoryBus(log), log)
}

func inProgressMeeting(t *testing.T, svc *Service) domain.Meeting {
	t.Helper()
	m, err := svc.Schedule(context.Background(), uuid.New(), "Discovery call", nil)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	joined, err := svc.Join(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	return joined
}

func TestPrepareStoresNotesAndTransitions(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeExtractor{signals: []signal.Signal{{}}, text: "Focus on integration concerns."}, &fakeProposer{})

	m, _ := svc.Schedule(context.Background(), uuid.New(), "Demo", nil)

	prepared, err := svc.Prepare(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prepared.Status != domain.StatusPrepared {
		t.Errorf("status = %s", prepared.Status)
	}
	if prepared.AgentNotes == nil || *prepared.AgentNotes != "Focus on integration concerns." {
		t.Errorf("notes = %v", prepared.AgentNotes)
	}
}

func TestPrepareInferenceFailureLeavesMeetingScheduled(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeExtractor{signals: []signal.Signal{{}}, textErr: errors.New("backend down")}, &fakeProposer{})

	m, _ := svc.Schedule(context.Background(), uuid.New(), "Demo", nil)

	_, err := svc.Prepare(context.Background(), m.ID)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if got := store.meetings[m.ID]; got.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want scheduled", got.Status)
	}
}

func TestJoinSkippingPreparation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeExtractor{signals: []signal.Signal{{}}}, &fakeProposer{})

	m, _ := svc.Schedule(context.Background(), uuid.New(), "Demo", nil)

	joined, err := svc.Join(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if joined.Status != domain.StatusInProgress || joined.AgentJoinedAt == nil {
		t.Errorf("joined = %+v", joined)
	}

	// Completed is terminal; nothing re-joins it.
	_ = store.MarkCompleted(context.Background(), m.ID, "positive", "done")
	if _, err := svc.Join(context.Background(), m.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("joining completed meeting: err = %v, want conflict", err)
	}
}

func TestListByLeadReturnsOnlyThatLead(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeExtractor{signals: []signal.Signal{{}}}, &fakeProposer{})

	leadA, leadB := uuid.New(), uuid.New()
	if _, err := svc.Schedule(context.Background(), leadA, "Discovery call", nil); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := svc.Schedule(context.Background(), leadA, "Demo", nil); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := svc.Schedule(context.Background(), leadB, "Demo", nil); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	meetings, err := svc.ListByLead(context.Background(), leadA)
	if err != nil {
		t.Fatalf("ListByLead: %v", err)
	}
	if len(meetings) != 2 {
		t.Fatalf("meetings = %d, want 2", len(meetings))
	}
	for _, m := range meetings {
		if m.LeadID != leadA {
			t.Errorf("meeting %s belongs to %s", m.ID, m.LeadID)
		}
	}
}

func TestAnalyzeAlertIsStickyAndProposesOnce(t *testing.T) {
	store := newFakeStore()
	ex := &fakeExtractor{signals: []signal.Signal{
		{Sentiment: 0.7, Confidence: 0.8},
		{Sentiment: 0.3, Confidence: 0.3},
		{Sentiment: 0.8, Confidence: 0.9},
	}}
	proposer := &fakeProposer{}
	svc := newTestService(store, ex, proposer)

	m := inProgressMeeting(t, svc)

	// First analysis: confident, no alert.
	first, err := svc.Analyze(context.Background(), m.ID, "going well")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first.Meeting.ManagerAlertTriggered {
		t.Error("alert triggered at confidence 0.8")
	}
	if len(proposer.proposed) != 0 {
		t.Errorf("proposals = %d, want 0", len(proposer.proposed))
	}

	// Second analysis: confidence drops, alert fires exactly once.
	second, err := svc.Analyze(context.Background(), m.ID, "it is going badly")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !second.Meeting.ManagerAlertTriggered {
		t.Error("alert not triggered at confidence 0.3")
	}
	if second.Meeting.AIAgentConfidenceScore != 0.3 {
		t.Errorf("confidence = %v, want 0.3", second.Meeting.AIAgentConfidenceScore)
	}
	if len(proposer.proposed) != 1 {
		t.Fatalf("proposals = %d, want exactly 1", len(proposer.proposed))
	}
	if proposer.proposed[0].ActionType != agentdomain.ActionTypeManagerAlert || proposer.proposed[0].RequiresApproval {
		t.Errorf("proposal = %+v", proposer.proposed[0])
	}

	// Third analysis: confidence recovers, flag stays set and no new action.
	third, err := svc.Analyze(context.Background(), m.ID, "recovered")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !third.Meeting.ManagerAlertTriggered {
		t.Error("sticky alert cleared by later analysis")
	}
	if third.Meeting.AIAgentConfidenceScore != 0.9 {
		t.Errorf("confidence = %v, want 0.9", third.Meeting.AIAgentConfidenceScore)
	}
	if len(proposer.proposed) != 1 {
		t.Errorf("proposals = %d, want still 1", len(proposer.proposed))
	}
}

func TestAnalyzeExplicitEscalation(t *testing.T) {
	store := newFakeStore()
	ex := &fakeExtractor{signals: []signal.Signal{
		{Sentiment: 0.5, Confidence: 0.8, AlertNeeded: true, AlertReason: "prospect asked for a manager"},
	}}
	proposer := &fakeProposer{}
	svc := newTestService(store, ex, proposer)

	m := inProgressMeeting(t, svc)

	result, err := svc.Analyze(context.Background(), m.ID, "transcript")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.Meeting.ManagerAlertTriggered {
		t.Error("explicit escalation must trigger the alert despite high confidence")
	}
	if result.Meeting.ManagerAlertReason == nil || *result.Meeting.ManagerAlertReason != "prospect asked for a manager" {
		t.Errorf("reason = %v", result.Meeting.ManagerAlertReason)
	}
}

func TestAnalyzeDegradedSignalKeepsMeetingInProgress(t *testing.T) {
	store := newFakeStore()
	// Fallback signal: neutral confidence, degraded.
	ex := &fakeExtractor{signals: []signal.Signal{signal.Fallback(signal.KindMeetingTranscript)}}
	proposer := &fakeProposer{}
	svc := newTestService(store, ex, proposer)

	m := inProgressMeeting(t, svc)

	result, err := svc.Analyze(context.Background(), m.ID, "garbled")
	if err != nil {
		t.Fatalf("Analyze must not fail on degraded signal: %v", err)
	}
	if result.Meeting.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want in_progress", result.Meeting.Status)
	}
	if result.Meeting.AIAgentConfidenceScore != 0.5 {
		t.Errorf("confidence = %v, want fallback 0.5", result.Meeting.AIAgentConfidenceScore)
	}
	if result.Meeting.ManagerAlertTriggered {
		t.Error("fallback signal at neutral confidence must not alert")
	}
	if result.Meeting.LastAnalysis == nil || !result.Meeting.LastAnalysis.Degraded {
		t.Error("stored analysis not marked degraded")
	}
	if len(proposer.proposed) != 0 {
		t.Errorf("proposals = %d, want 0", len(proposer.proposed))
	}
}

func TestAnalyzeRequiresInProgress(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeExtractor{signals: []signal.Signal{{Confidence: 0.8}}}, &fakeProposer{})

	m, _ := svc.Schedule(context.Background(), uuid.New(), "Demo", nil)

	if _, err := svc.Analyze(context.Background(), m.ID, "t"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCompleteStoresSummaryAndOutcome(t *testing.T) {
	store := newFakeStore()
	ex := &fakeExtractor{
		signals: []signal.Signal{{Sentiment: 0.8, Confidence: 0.9}},
		text:    "Prospect wants a pilot in Q3.",
	}
	svc := newTestService(store, ex, &fakeProposer{})

	m := inProgressMeeting(t, svc)
	_, _ = svc.Analyze(context.Background(), m.ID, "great call")

	completed, err := svc.Complete(context.Background(), m.ID, "full transcript")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Errorf("status = %s", completed.Status)
	}
	if completed.ConversationSummary == nil || *completed.ConversationSummary != "Prospect wants a pilot in Q3." {
		t.Errorf("summary = %v", completed.ConversationSummary)
	}
	if completed.Outcome == nil || *completed.Outcome != "positive" {
		t.Errorf("outcome = %v", completed.Outcome)
	}
}

func TestCompleteInferenceFailureKeepsMeetingInProgress(t *testing.T) {
	store := newFakeStore()
	ex := &fakeExtractor{signals: []signal.Signal{{Confidence: 0.8}}, textErr: errors.New("backend down")}
	svc := newTestService(store, ex, &fakeProposer{})

	m := inProgressMeeting(t, svc)

	if _, err := svc.Complete(context.Background(), m.ID, "transcript"); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if got := store.meetings[m.ID]; got.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}
