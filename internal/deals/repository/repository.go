package repository

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/deals/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("deal not found")
	// ErrNoActiveDeal signals the lead has no open deal; it is the expected
	// answer to the conditional-existence check before insert.
	ErrNoActiveDeal = errors.New("no active deal for lead")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const dealColumns = `id, lead_id, stage, value, probability, close_date,
	last_activity_at, created_at, updated_at`

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var deal domain.Deal
	err := row.Scan(
		&deal.ID, &deal.LeadID, &deal.Stage, &deal.Value, &deal.Probability,
		&deal.CloseDate, &deal.LastActivityAt, &deal.CreatedAt, &deal.UpdatedAt,
	)
	return deal, err
}

type CreateDealParams struct {
	LeadID      uuid.UUID
	Stage       domain.Stage
	Value       float64
	Probability float64
}

func (r *Repository) Create(ctx context.Context, params CreateDealParams) (domain.Deal, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO deals (lead_id, stage, value, probability)
		VALUES ($1, $2, $3, $4)
		RETURNING `+dealColumns+`
	`, params.LeadID, params.Stage, params.Value, params.Probability)

	return scanDeal(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Deal, error) {
	deal, err := scanDeal(r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, ErrNotFound
	}
	return deal, err
}

// FindActiveByLead returns the lead's single non-terminal deal, if any. This
// read is the uniqueness check performed before every insert.
func (r *Repository) FindActiveByLead(ctx context.Context, leadID uuid.UUID) (domain.Deal, error) {
	deal, err := scanDeal(r.pool.QueryRow(ctx, `
		SELECT `+dealColumns+`
		FROM deals
		WHERE lead_id = $1 AND stage NOT IN ('closed_won', 'closed_lost')
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, ErrNoActiveDeal
	}
	return deal, err
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Deal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+dealColumns+` FROM deals WHERE lead_id = $1 ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Deal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+dealColumns+` FROM deals ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeals(rows)
}

// OpenDeal pairs an open deal with its lead's sentiment for the recompute
// pass.
type OpenDeal struct {
	Deal          domain.Deal
	LeadSentiment float64
}

func (r *Repository) ListOpen(ctx context.Context) ([]OpenDeal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.lead_id, d.stage, d.value, d.probability, d.close_date,
			d.last_activity_at, d.created_at, d.updated_at, l.sentiment
		FROM deals d
		JOIN leads l ON l.id = d.lead_id
		WHERE d.stage NOT IN ('closed_won', 'closed_lost')
		ORDER BY d.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	open := make([]OpenDeal, 0)
	for rows.Next() {
		var od OpenDeal
		if err := rows.Scan(
			&od.Deal.ID, &od.Deal.LeadID, &od.Deal.Stage, &od.Deal.Value, &od.Deal.Probability,
			&od.Deal.CloseDate, &od.Deal.LastActivityAt, &od.Deal.CreatedAt, &od.Deal.UpdatedAt,
			&od.LeadSentiment,
		); err != nil {
			return nil, err
		}
		open = append(open, od)
	}

	return open, rows.Err()
}

// ApplyTransition moves an open deal to a new stage and probability and
// refreshes activity. Guarded so a deal that closed concurrently stays
// closed.
func (r *Repository) ApplyTransition(ctx context.Context, id uuid.UUID, stage domain.Stage, probability float64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals
		SET stage = $2, probability = $3, last_activity_at = $4, updated_at = now()
		WHERE id = $1 AND stage NOT IN ('closed_won', 'closed_lost')
	`, id, stage, probability, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProbability adjusts only the probability, leaving activity untouched
// so repeated recompute passes stay idempotent.
func (r *Repository) UpdateProbability(ctx context.Context, id uuid.UUID, probability float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET probability = $2, updated_at = now()
		WHERE id = $1 AND stage NOT IN ('closed_won', 'closed_lost')
	`, id, probability)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close moves a deal into a terminal stage and stamps the close date.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, stage domain.Stage, probability float64, closeDate time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals
		SET stage = $2, probability = $3, close_date = $4, last_activity_at = now(), updated_at = now()
		WHERE id = $1 AND stage NOT IN ('closed_won', 'closed_lost')
	`, id, stage, probability, closeDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectDeals(rows pgx.Rows) ([]domain.Deal, error) {
	deals := make([]domain.Deal, 0)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}
