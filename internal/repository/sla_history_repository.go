package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/sla-service/internal/domain"
)

// SLAHistoryRepository stores audit entries.
type SLAHistoryRepository interface {
	Create(ctx context.Context, history *domain.SLAHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLAHistory, error)
}

type slaHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewSLAHistoryRepository builds repository.
func NewSLAHistoryRepository(pool *pgxpool.Pool) SLAHistoryRepository {
	return &slaHistoryRepository{pool: pool}
}

func (r *slaHistoryRepository) Create(ctx context.Context, history *domain.SLAHistory) error {
	const query = `
        INSERT INTO sla_history (ticket_id, changed_by, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.TicketID,
		history.ChangedBy,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *slaHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLAHistory, error) {
	const query = `
        SELECT id, ticket_id, changed_by, change_type, old_value, new_value, created_at
        FROM sla_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAHistory
	for rows.Next() {
		var history domain.SLAHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.ChangedBy,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
