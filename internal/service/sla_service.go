package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/auth"
	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/events"
	"github.com/opsdesk/sla-service/internal/lock"
	"github.com/opsdesk/sla-service/internal/observability"
	"github.com/opsdesk/sla-service/internal/repository"
	"github.com/opsdesk/sla-service/internal/sla"
	apperrors "github.com/opsdesk/sla-service/pkg/util"
)

// SLAService hosts the SLA engine: it persists instances, serializes their
// mutations per ticket and publishes what changed.
type SLAService struct {
	engine     *sla.Engine
	instances  repository.SLAInstanceRepository
	history    repository.SLAHistoryRepository
	dispatcher events.Dispatcher
	locker     lock.Locker
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// SLADependencies bundles collaborators for the SLA and escalation services.
type SLADependencies struct {
	Engine       *sla.Engine
	InstanceRepo repository.SLAInstanceRepository
	HistoryRepo  repository.SLAHistoryRepository
	Dispatcher   events.Dispatcher
	Locker       lock.Locker
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// TrackInput starts the SLA clock of a ticket. Actor defaults to the
// authenticated client carried by the context.
type TrackInput struct {
	TicketID string
	Request  sla.DeadlineRequest
	Actor    *string
}

// MutationInput is shared by the clock operations. At defaults to now and
// Actor to the authenticated client carried by the context.
type MutationInput struct {
	At    *time.Time
	Actor *string
}

// SLAStatusView pairs a stored instance with its evaluation.
// Unavailable is set when the loaded policy cannot evaluate the instance.
type SLAStatusView struct {
	Instance    *domain.SLAInstance
	Snapshot    sla.StatusSnapshot
	Unavailable error
}

// EscalationStatus pairs a stored instance with its escalation view.
type EscalationStatus struct {
	Instance    *domain.SLAInstance
	View        sla.EscalationView
	Unavailable error
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SLAService{
		engine:     deps.Engine,
		instances:  deps.InstanceRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		locker:     locker,
		metrics:    deps.Metrics,
		logger:     logger,
		clock:      clock,
	}
}

// Engine exposes the engine for read-only callers.
func (s *SLAService) Engine() *sla.Engine {
	return s.engine
}

// Preview computes deadlines without persisting anything.
func (s *SLAService) Preview(ctx context.Context, req sla.DeadlineRequest) (sla.Deadlines, error) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.clock()
	}
	d, err := s.engine.ComputeDeadlines(req)
	if err != nil {
		return sla.Deadlines{}, err
	}
	s.metrics.RecordDeadline(string(req.ServiceLevel), string(d.Priority), string(d.ServiceHours))
	return d, nil
}

// StartTracking computes the deadlines of a ticket and stores its SLA instance.
func (s *SLAService) StartTracking(ctx context.Context, input TrackInput) (*SLAStatusView, error) {
	if input.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required", nil)
	}
	release, err := s.locker.Lock(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.instances.GetByTicketID(ctx, input.TicketID); err == nil {
		return nil, apperrors.NewConflict("sla already tracked", map[string]any{"ticket_id": input.TicketID})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	req := input.Request
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.clock()
	}
	d, err := s.engine.ComputeDeadlines(req)
	if err != nil {
		return nil, err
	}
	actor := actorFor(ctx, input.Actor)
	inst := sla.NewInstance(input.TicketID, req, d)
	snap, _, err := s.engine.Refresh(inst, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.instances.Create(ctx, inst); err != nil {
		return nil, err
	}
	s.metrics.RecordDeadline(string(req.ServiceLevel), string(d.Priority), string(d.ServiceHours))

	s.recordHistory(ctx, &domain.SLAHistory{
		TicketID:   inst.TicketID,
		ChangedBy:  actor,
		ChangeType: domain.ChangeTypeStarted,
		NewValue: map[string]any{
			"priority":                d.Priority,
			"service_level":           inst.ServiceLevel,
			"service_hours":           d.ServiceHours,
			"first_response_deadline": d.FirstResponseDeadline,
			"resolution_deadline":     d.ResolutionDeadline,
		},
	})
	s.publishEvent(ctx, events.NewEvent(events.EventSLAStarted, inst.TicketID, actor, s.clock(), events.SLAStartedPayload{
		ServiceLevel:          inst.ServiceLevel,
		Priority:              d.Priority,
		ServiceHours:          d.ServiceHours,
		FirstResponseDeadline: d.FirstResponseDeadline,
		ResolutionDeadline:    d.ResolutionDeadline,
	}))
	return &SLAStatusView{Instance: inst, Snapshot: snap}, nil
}

// GetStatus evaluates the SLA of a ticket now. A changed status or violation
// flag is persisted and published.
func (s *SLAService) GetStatus(ctx context.Context, ticketID string) (*SLAStatusView, error) {
	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	inst, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus, oldViolated := inst.Status, inst.Violated
	snap, changed, err := s.engine.Refresh(inst, s.clock())
	if err != nil {
		if !uncomputable(err) {
			return nil, err
		}
		s.logUnavailable(inst, err)
		return &SLAStatusView{Instance: inst, Unavailable: err}, nil
	}
	if changed {
		if err := s.instances.Update(ctx, inst); err != nil {
			return nil, err
		}
		s.statusChanged(ctx, inst, nil, oldStatus, oldViolated)
	}
	return &SLAStatusView{Instance: inst, Snapshot: snap}, nil
}

// Pause stops both clocks of a ticket.
func (s *SLAService) Pause(ctx context.Context, ticketID string, in MutationInput) (*SLAStatusView, error) {
	return s.mutate(ctx, ticketID, in, domain.ChangeTypePaused, func(inst *domain.SLAInstance, at time.Time) error {
		return s.engine.Pause(inst, at)
	})
}

// Resume restarts the clocks of a paused ticket.
func (s *SLAService) Resume(ctx context.Context, ticketID string, in MutationInput) (*SLAStatusView, error) {
	return s.mutate(ctx, ticketID, in, domain.ChangeTypeResumed, func(inst *domain.SLAInstance, at time.Time) error {
		return s.engine.Resume(inst, at)
	})
}

// RecordFirstResponse stops the response clock.
func (s *SLAService) RecordFirstResponse(ctx context.Context, ticketID string, in MutationInput) (*SLAStatusView, error) {
	return s.mutate(ctx, ticketID, in, domain.ChangeTypeFirstResponse, func(inst *domain.SLAInstance, at time.Time) error {
		return s.engine.RecordFirstResponse(inst, at)
	})
}

// RecordResolution stops both clocks for good.
func (s *SLAService) RecordResolution(ctx context.Context, ticketID string, in MutationInput) (*SLAStatusView, error) {
	return s.mutate(ctx, ticketID, in, domain.ChangeTypeResolved, func(inst *domain.SLAInstance, at time.Time) error {
		if err := s.engine.RecordResolution(inst, at); err != nil {
			return err
		}
		inst.AwaitingCustomerSince = nil
		return nil
	})
}

// MarkAwaitingCustomer starts or stops the customer inaction ladder. Starting
// it again restarts the ladder from its first rung.
func (s *SLAService) MarkAwaitingCustomer(ctx context.Context, ticketID string, awaiting bool, in MutationInput) (*SLAStatusView, error) {
	return s.mutate(ctx, ticketID, in, domain.ChangeTypeCustomer, func(inst *domain.SLAInstance, at time.Time) error {
		if !inst.Active() {
			return fmt.Errorf("%w: sla already resolved", sla.ErrInvalidInput)
		}
		if awaiting {
			since := at
			inst.AwaitingCustomerSince = &since
		} else {
			inst.AwaitingCustomerSince = nil
		}
		inst.LastCustomerAction = 0
		return nil
	})
}

// CurrentEscalation reports the escalation state of a ticket now.
func (s *SLAService) CurrentEscalation(ctx context.Context, ticketID string) (*EscalationStatus, error) {
	inst, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	view, err := s.engine.CurrentEscalation(inst, s.clock())
	if err != nil {
		if !uncomputable(err) {
			return nil, err
		}
		s.logUnavailable(inst, err)
		return &EscalationStatus{Instance: inst, Unavailable: err}, nil
	}
	return &EscalationStatus{Instance: inst, View: view}, nil
}

// uncomputable reports engine errors caused by a stored instance the loaded
// policy no longer covers, such as a removed rule row or service-hours window.
func uncomputable(err error) bool {
	return errors.Is(err, sla.ErrRuleNotFound) || errors.Is(err, sla.ErrInvalidInput)
}

func (s *SLAService) logUnavailable(inst *domain.SLAInstance, err error) {
	s.logger.Error("sla unavailable",
		zap.String("ticket_id", inst.TicketID),
		zap.String("service_level", string(inst.ServiceLevel)),
		zap.String("priority", string(inst.Priority)),
		zap.String("service_hours", string(inst.ServiceHours)),
		zap.Error(err))
}

// History lists audit entries of a ticket.
func (s *SLAService) History(ctx context.Context, ticketID string) ([]domain.SLAHistory, error) {
	if _, err := s.load(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListByTicket(ctx, ticketID)
}

func (s *SLAService) mutate(ctx context.Context, ticketID string, in MutationInput, change domain.SLAChangeType, apply func(*domain.SLAInstance, time.Time) error) (*SLAStatusView, error) {
	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	inst, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	actor := actorFor(ctx, in.Actor)
	now := s.clock()
	at := now
	if in.At != nil {
		at = *in.At
	}
	if at.After(now) {
		return nil, apperrors.NewValidationError("at must not be in the future", map[string]any{
			"at":  at,
			"now": now,
		})
	}

	before := snapshotFields(inst)
	oldStatus, oldViolated := inst.Status, inst.Violated
	if err := apply(inst, at); err != nil {
		return nil, err
	}
	snap, _, err := s.engine.Refresh(inst, now)
	if err != nil {
		return nil, err
	}
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}

	after := snapshotFields(inst)
	after["at"] = at
	s.recordHistory(ctx, &domain.SLAHistory{
		TicketID:   ticketID,
		ChangedBy:  actor,
		ChangeType: change,
		OldValue:   before,
		NewValue:   after,
	})
	if inst.Status != oldStatus || inst.Violated != oldViolated {
		s.statusChanged(ctx, inst, actor, oldStatus, oldViolated)
	}
	return &SLAStatusView{Instance: inst, Snapshot: snap}, nil
}

// actorFor prefers an explicit actor, then the authenticated client of ctx.
func actorFor(ctx context.Context, explicit *string) *string {
	if explicit != nil {
		return explicit
	}
	if principal, ok := auth.PrincipalFrom(ctx); ok {
		id := principal.ClientID
		return &id
	}
	return nil
}

func (s *SLAService) load(ctx context.Context, ticketID string) (*domain.SLAInstance, error) {
	inst, err := s.instances.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla instance", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return inst, nil
}

func (s *SLAService) statusChanged(ctx context.Context, inst *domain.SLAInstance, actor *string, oldStatus domain.SLAStatus, oldViolated bool) {
	s.metrics.RecordStatusChange(string(inst.ServiceLevel), string(inst.Status))
	if inst.Status != oldStatus {
		s.recordHistory(ctx, &domain.SLAHistory{
			TicketID:   inst.TicketID,
			ChangedBy:  actor,
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   map[string]any{"status": oldStatus, "sla_violated": oldViolated},
			NewValue:   map[string]any{"status": inst.Status, "sla_violated": inst.Violated},
		})
	}
	s.publishEvent(ctx, events.NewEvent(events.EventSLAStatusChanged, inst.TicketID, actor, s.clock(), events.SLAStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: inst.Status,
		Violated:  inst.Violated,
	}))
}

func (s *SLAService) recordHistory(ctx context.Context, entry *domain.SLAHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record sla history",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func (s *SLAService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func snapshotFields(inst *domain.SLAInstance) map[string]any {
	return map[string]any{
		"status":                    inst.Status,
		"sla_violated":              inst.Violated,
		"is_paused":                 inst.IsPaused,
		"total_paused_minutes":      inst.TotalPausedMinutes(),
		"paused_chargeable_minutes": inst.PausedChargeableMinutes(),
		"first_response_at":         inst.FirstResponseAt,
		"resolved_at":               inst.ResolvedAt,
		"awaiting_customer_since":   inst.AwaitingCustomerSince,
	}
}
