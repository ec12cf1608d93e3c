package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/sla-service/internal/domain"
)

// SLAInstanceRepository encapsulates SLA instance persistence.
type SLAInstanceRepository interface {
	Create(ctx context.Context, inst *domain.SLAInstance) error
	Update(ctx context.Context, inst *domain.SLAInstance) error
	GetByTicketID(ctx context.Context, ticketID string) (*domain.SLAInstance, error)
	ListActive(ctx context.Context, after *ActiveCursor, limit int) ([]domain.SLAInstance, error)
}

// ActiveCursor is the position after which ListActive continues. Active
// instances are ordered by creation time, then ticket ID.
type ActiveCursor struct {
	CreatedAt time.Time
	TicketID  string
}

// CursorAfter returns the cursor of the last instance in page, or nil for an empty page.
func CursorAfter(page []domain.SLAInstance) *ActiveCursor {
	if len(page) == 0 {
		return nil
	}
	last := page[len(page)-1]
	return &ActiveCursor{CreatedAt: last.CreatedAt, TicketID: last.TicketID}
}

// Before reports whether inst sorts after the cursor position.
func (c ActiveCursor) Before(inst domain.SLAInstance) bool {
	if !c.CreatedAt.Equal(inst.CreatedAt) {
		return c.CreatedAt.Before(inst.CreatedAt)
	}
	return c.TicketID < inst.TicketID
}

type slaInstanceRepository struct {
	pool *pgxpool.Pool
}

// NewSLAInstanceRepository instantiates repository.
func NewSLAInstanceRepository(pool *pgxpool.Pool) SLAInstanceRepository {
	return &slaInstanceRepository{pool: pool}
}

const slaInstanceColumns = `
        id, ticket_id, technical_criticality, business_criticality, service_level, priority, service_hours,
        adjustment_factor::text, created_at, first_response_at, resolved_at, first_response_deadline,
        resolution_deadline, is_paused, paused_at, total_paused_us, paused_chargeable_us, status, sla_violated,
        last_escalation_level, last_internal_rule_pct, awaiting_customer_since, last_customer_action, updated_at`

func (r *slaInstanceRepository) Create(ctx context.Context, inst *domain.SLAInstance) error {
	const query = `
        INSERT INTO sla_instances (ticket_id, technical_criticality, business_criticality, service_level, priority,
            service_hours, adjustment_factor, created_at, first_response_deadline, resolution_deadline, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		inst.TicketID,
		inst.TechnicalCriticality,
		inst.BusinessCriticality,
		inst.ServiceLevel,
		inst.Priority,
		inst.ServiceHours,
		inst.AdjustmentFactor,
		inst.CreatedAt,
		inst.FirstResponseDeadline,
		inst.ResolutionDeadline,
		inst.Status,
	).Scan(&inst.ID, &inst.UpdatedAt)
}

func (r *slaInstanceRepository) Update(ctx context.Context, inst *domain.SLAInstance) error {
	const query = `
        UPDATE sla_instances SET first_response_at=$1, resolved_at=$2, is_paused=$3, paused_at=$4,
            total_paused_us=$5, paused_chargeable_us=$6, status=$7, sla_violated=$8, last_escalation_level=$9,
            last_internal_rule_pct=$10, awaiting_customer_since=$11, last_customer_action=$12, updated_at=NOW()
        WHERE ticket_id=$13
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		inst.FirstResponseAt,
		inst.ResolvedAt,
		inst.IsPaused,
		inst.PausedAt,
		inst.TotalPaused.Microseconds(),
		inst.PausedChargeable.Microseconds(),
		inst.Status,
		inst.Violated,
		inst.LastEscalationLevel,
		inst.LastInternalRulePercent,
		inst.AwaitingCustomerSince,
		inst.LastCustomerAction,
		inst.TicketID,
	).Scan(&inst.UpdatedAt)
}

func (r *slaInstanceRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.SLAInstance, error) {
	query := `SELECT` + slaInstanceColumns + ` FROM sla_instances WHERE ticket_id=$1`
	inst, err := scanSLAInstance(r.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (r *slaInstanceRepository) ListActive(ctx context.Context, after *ActiveCursor, limit int) ([]domain.SLAInstance, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		createdAt *time.Time
		ticketID  string
	)
	if after != nil {
		createdAt = &after.CreatedAt
		ticketID = after.TicketID
	}
	query := `SELECT` + slaInstanceColumns + `
        FROM sla_instances
        WHERE resolved_at IS NULL
          AND ($1::timestamptz IS NULL OR (created_at, ticket_id) > ($1::timestamptz, $2::text))
        ORDER BY created_at ASC, ticket_id ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, createdAt, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAInstance
	for rows.Next() {
		inst, err := scanSLAInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inst)
	}
	return result, rows.Err()
}

func scanSLAInstance(row pgx.Row) (*domain.SLAInstance, error) {
	var (
		inst         domain.SLAInstance
		pausedUS     int64
		chargeableUS int64
	)
	if err := row.Scan(
		&inst.ID,
		&inst.TicketID,
		&inst.TechnicalCriticality,
		&inst.BusinessCriticality,
		&inst.ServiceLevel,
		&inst.Priority,
		&inst.ServiceHours,
		&inst.AdjustmentFactor,
		&inst.CreatedAt,
		&inst.FirstResponseAt,
		&inst.ResolvedAt,
		&inst.FirstResponseDeadline,
		&inst.ResolutionDeadline,
		&inst.IsPaused,
		&inst.PausedAt,
		&pausedUS,
		&chargeableUS,
		&inst.Status,
		&inst.Violated,
		&inst.LastEscalationLevel,
		&inst.LastInternalRulePercent,
		&inst.AwaitingCustomerSince,
		&inst.LastCustomerAction,
		&inst.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inst.TotalPaused = time.Duration(pausedUS) * time.Microsecond
	inst.PausedChargeable = time.Duration(chargeableUS) * time.Microsecond
	return &inst, nil
}
