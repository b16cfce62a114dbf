package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"salesdesk_backend/internal/meetings/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("meeting not found")
	// ErrInvalidTransition signals a guarded status update that matched no
	// row: the meeting moved out of the expected state.
	ErrInvalidTransition = errors.New("meeting is not in the expected status")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const meetingColumns = `id, lead_id, title, scheduled_at, status, agent_joined_at,
	manager_joined_at, ai_agent_confidence_score, manager_alert_triggered,
	manager_alert_reason, last_analysis, conversation_summary, outcome,
	agent_notes, created_at, updated_at`

func scanMeeting(row pgx.Row) (domain.Meeting, error) {
	var m domain.Meeting
	var analysis []byte
	err := row.Scan(
		&m.ID, &m.LeadID, &m.Title, &m.ScheduledAt, &m.Status, &m.AgentJoinedAt,
		&m.ManagerJoinedAt, &m.AIAgentConfidenceScore, &m.ManagerAlertTriggered,
		&m.ManagerAlertReason, &analysis, &m.ConversationSummary, &m.Outcome,
		&m.AgentNotes, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Meeting{}, ErrNotFound
	}
	if err != nil {
		return domain.Meeting{}, err
	}

	if len(analysis) > 0 {
		var a domain.Analysis
		if err := json.Unmarshal(analysis, &a); err != nil {
			return domain.Meeting{}, err
		}
		m.LastAnalysis = &a
	}
	return m, nil
}

type CreateMeetingParams struct {
	LeadID      uuid.UUID
	Title       string
	ScheduledAt *time.Time
}

func (r *Repository) Create(ctx context.Context, params CreateMeetingParams) (domain.Meeting, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO meetings (lead_id, title, scheduled_at)
		VALUES ($1, $2, $3)
		RETURNING `+meetingColumns+`
	`, params.LeadID, params.Title, params.ScheduledAt)

	return scanMeeting(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Meeting, error) {
	return scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Meeting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+meetingColumns+` FROM meetings WHERE lead_id = $1 ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := make([]domain.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}

	return meetings, rows.Err()
}

// MarkPrepared stores the preparation notes and moves scheduled → prepared.
func (r *Repository) MarkPrepared(ctx context.Context, id uuid.UUID, notes string) error {
	return r.guarded(ctx, `
		UPDATE meetings SET status = 'prepared', agent_notes = $2, updated_at = now()
		WHERE id = $1 AND status = 'scheduled'
	`, id, notes)
}

// MarkJoined stamps the agent's entry and moves to in_progress.
func (r *Repository) MarkJoined(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.guarded(ctx, `
		UPDATE meetings SET status = 'in_progress', agent_joined_at = $2, updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'prepared')
	`, id, at)
}

// SaveAnalysis overwrites the confidence score and stored analysis. The
// alert flag is OR-combined in SQL so a later calmer analysis can never
// clear it, and the first alert's reason is kept.
func (r *Repository) SaveAnalysis(ctx context.Context, id uuid.UUID, analysis domain.Analysis, alert bool, reason *string) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	return r.guarded(ctx, `
		UPDATE meetings
		SET ai_agent_confidence_score = $2,
			last_analysis = $3,
			manager_alert_triggered = manager_alert_triggered OR $4,
			manager_alert_reason = CASE
				WHEN manager_alert_triggered THEN manager_alert_reason
				WHEN $4 THEN $5
				ELSE manager_alert_reason
			END,
			updated_at = now()
		WHERE id = $1 AND status = 'in_progress'
	`, id, analysis.Confidence, payload, alert, reason)
}

// MarkCompleted stores the summary and outcome and moves to the terminal
// completed status.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, outcome, summary string) error {
	return r.guarded(ctx, `
		UPDATE meetings
		SET status = 'completed', outcome = $2, conversation_summary = $3, updated_at = now()
		WHERE id = $1 AND status = 'in_progress'
	`, id, outcome, summary)
}

func (r *Repository) guarded(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}
