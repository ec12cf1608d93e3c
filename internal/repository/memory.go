package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/sla-service/internal/domain"
)

// MemorySLAInstanceRepository keeps instances in process memory. It backs the
// service when no database is configured and behaves like the pgx repository,
// including pgx.ErrNoRows for unknown tickets.
type MemorySLAInstanceRepository struct {
	mu   sync.RWMutex
	seq  int
	rows map[string]domain.SLAInstance
}

// NewMemorySLAInstanceRepository builds an empty repository.
func NewMemorySLAInstanceRepository() *MemorySLAInstanceRepository {
	return &MemorySLAInstanceRepository{rows: map[string]domain.SLAInstance{}}
}

func (r *MemorySLAInstanceRepository) Create(_ context.Context, inst *domain.SLAInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	inst.ID = strconv.Itoa(r.seq)
	inst.UpdatedAt = time.Now()
	r.rows[inst.TicketID] = *inst
	return nil
}

func (r *MemorySLAInstanceRepository) Update(_ context.Context, inst *domain.SLAInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[inst.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	inst.UpdatedAt = time.Now()
	r.rows[inst.TicketID] = *inst
	return nil
}

func (r *MemorySLAInstanceRepository) GetByTicketID(_ context.Context, ticketID string) (*domain.SLAInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.rows[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &inst, nil
}

func (r *MemorySLAInstanceRepository) ListActive(_ context.Context, after *ActiveCursor, limit int) ([]domain.SLAInstance, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.RLock()
	active := make([]domain.SLAInstance, 0, len(r.rows))
	for _, inst := range r.rows {
		if inst.Active() && (after == nil || after.Before(inst)) {
			active = append(active, inst)
		}
	}
	r.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].TicketID < active[j].TicketID
	})
	if len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// MemorySLAHistoryRepository keeps audit entries in process memory.
type MemorySLAHistoryRepository struct {
	mu      sync.RWMutex
	entries []domain.SLAHistory
}

// NewMemorySLAHistoryRepository builds an empty repository.
func NewMemorySLAHistoryRepository() *MemorySLAHistoryRepository {
	return &MemorySLAHistoryRepository{}
}

func (r *MemorySLAHistoryRepository) Create(_ context.Context, history *domain.SLAHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history.ID = strconv.Itoa(len(r.entries) + 1)
	history.CreatedAt = time.Now()
	r.entries = append(r.entries, *history)
	return nil
}

func (r *MemorySLAHistoryRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.SLAHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.SLAHistory
	for _, h := range r.entries {
		if h.TicketID == ticketID {
			result = append(result, h)
		}
	}
	return result, nil
}
