package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/events"
	"github.com/opsdesk/sla-service/internal/lock"
	"github.com/opsdesk/sla-service/internal/observability"
	"github.com/opsdesk/sla-service/internal/repository"
	"github.com/opsdesk/sla-service/internal/sla"
)

const escalationBatchSize = 100

// EscalationService periodically re-evaluates every active SLA and publishes
// escalation levels and customer actions the first time they are reached.
type EscalationService struct {
	engine     *sla.Engine
	instances  repository.SLAInstanceRepository
	history    repository.SLAHistoryRepository
	dispatcher events.Dispatcher
	locker     lock.Locker
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// EscalationReport summarizes one run.
type EscalationReport struct {
	Evaluated       int
	Escalated       int
	RuleEscalations int
	CustomerActions int
	StatusChanges   int
	Failed          int
}

// NewEscalationService constructs the service.
func NewEscalationService(deps SLADependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &EscalationService{
		engine:     deps.Engine,
		instances:  deps.InstanceRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		locker:     locker,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Run evaluates all active instances at now. Failures on one instance are
// logged and counted; only listing failures abort the run. Pages follow a
// cursor, so tickets resolved during the run never shift the next page.
func (s *EscalationService) Run(ctx context.Context, now time.Time) (EscalationReport, error) {
	var (
		report EscalationReport
		cursor *repository.ActiveCursor
	)
	for {
		page, err := s.instances.ListActive(ctx, cursor, escalationBatchSize)
		if err != nil {
			return report, err
		}
		for i := range page {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if err := s.evaluate(ctx, page[i].TicketID, now, &report); err != nil {
				report.Failed++
				s.logger.Warn("evaluate escalation", zap.String("ticket_id", page[i].TicketID), zap.Error(err))
			}
		}
		if len(page) < escalationBatchSize {
			break
		}
		cursor = repository.CursorAfter(page)
	}
	s.metrics.RecordEscalationRun(report.Evaluated)
	return report, nil
}

func (s *EscalationService) evaluate(ctx context.Context, ticketID string, now time.Time, report *EscalationReport) error {
	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return err
	}
	defer release()

	// Reload under the lock; the listed copy may be stale.
	inst, err := s.instances.GetByTicketID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !inst.Active() {
		return nil
	}
	report.Evaluated++

	view, err := s.engine.CurrentEscalation(inst, now)
	if err != nil {
		return err
	}
	oldStatus := inst.Status
	transition := sla.Advance(inst, view)
	_, changed, err := s.engine.Refresh(inst, now)
	if err != nil {
		return err
	}
	if transition.Empty() && !changed {
		return nil
	}
	if err := s.instances.Update(ctx, inst); err != nil {
		return err
	}

	if changed {
		report.StatusChanges++
		s.metrics.RecordStatusChange(string(inst.ServiceLevel), string(inst.Status))
		s.publish(ctx, events.NewEvent(events.EventSLAStatusChanged, inst.TicketID, nil, now, events.SLAStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: inst.Status,
			Violated:  inst.Violated,
		}))
	}
	if level := transition.Level; level != nil {
		report.Escalated++
		s.metrics.RecordEscalation(string(inst.ServiceLevel), level.Index)
		payload := events.SLAEscalationReachedPayload{
			Trigger:        events.TriggerTimeLadder,
			ServiceLevel:   inst.ServiceLevel,
			Priority:       inst.Priority,
			Level:          level.Index,
			NotifyTargets:  level.NotifyTargets,
			ElapsedMinutes: view.ElapsedMinutes,
			ElapsedPercent: view.ElapsedPercent,
		}
		if view.InternalRule != nil {
			target := view.InternalRule.TargetLevel
			payload.RuleTarget = &target
		}
		s.record(ctx, inst.TicketID, domain.ChangeTypeEscalated, map[string]any{
			"level":           level.Index,
			"notify_targets":  level.NotifyTargets,
			"elapsed_minutes": view.ElapsedMinutes,
		})
		s.publish(ctx, events.NewEvent(events.EventSLAEscalationReached, inst.TicketID, nil, now, payload))
	}
	if rule := transition.InternalRule; rule != nil {
		report.RuleEscalations++
		s.metrics.RecordRuleEscalation(string(inst.ServiceLevel), rule.SLAPercentage)
		target := rule.TargetLevel
		s.record(ctx, inst.TicketID, domain.ChangeTypeEscalated, map[string]any{
			"sla_percentage":  rule.SLAPercentage,
			"target":          target,
			"elapsed_percent": view.ElapsedPercent,
		})
		s.publish(ctx, events.NewEvent(events.EventSLAEscalationReached, inst.TicketID, nil, now, events.SLAEscalationReachedPayload{
			Trigger:        events.TriggerSLAPercentage,
			ServiceLevel:   inst.ServiceLevel,
			Priority:       inst.Priority,
			Level:          inst.LastEscalationLevel,
			NotifyTargets:  []domain.Role{target},
			ElapsedMinutes: view.ElapsedMinutes,
			ElapsedPercent: view.ElapsedPercent,
			RuleTarget:     &target,
			SLAPercentage:  rule.SLAPercentage,
		}))
	}
	if action := transition.CustomerAction; action != nil {
		report.CustomerActions++
		s.metrics.RecordCustomerAction(string(inst.ServiceLevel), string(action.Action))
		s.record(ctx, inst.TicketID, domain.ChangeTypeCustomer, map[string]any{
			"action":       action.Action,
			"waiting_days": view.WaitingDays,
		})
		s.publish(ctx, events.NewEvent(events.EventSLACustomerActionDue, inst.TicketID, nil, now, events.SLACustomerActionDuePayload{
			ServiceLevel: inst.ServiceLevel,
			Action:       action.Action,
			WaitingDays:  view.WaitingDays,
			Message:      action.Message,
		}))
	}
	return nil
}

func (s *EscalationService) record(ctx context.Context, ticketID string, change domain.SLAChangeType, value map[string]any) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, &domain.SLAHistory{TicketID: ticketID, ChangeType: change, NewValue: value}); err != nil {
		s.logger.Warn("record escalation history", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *EscalationService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}
