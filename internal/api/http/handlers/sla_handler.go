package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/sla-service/internal/api/dto"
	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/service"
	"github.com/opsdesk/sla-service/internal/sla"
	apperrors "github.com/opsdesk/sla-service/pkg/util"
)

// SLAHandler exposes the SLA engine and tracked instances.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// PriorityMatrix GET /sla/priority-matrix.
func (h *SLAHandler) PriorityMatrix(c *fiber.Ctx) error {
	matrix := h.service.Engine().PriorityMatrix()
	entries := make([]dto.PriorityMatrixEntry, 0, len(domain.TechnicalCriticalities)*6)
	for _, tech := range domain.TechnicalCriticalities {
		for b := domain.MinBusinessCriticality; b <= domain.MaxBusinessCriticality; b++ {
			p, err := matrix.Resolve(tech, b)
			if err != nil {
				return err
			}
			entries = append(entries, dto.PriorityMatrixEntry{TechnicalCriticality: tech, BusinessCriticality: b, Priority: p})
		}
	}
	return c.JSON(fiber.Map{"data": entries})
}

// PreviewDeadlines POST /sla/deadlines.
func (h *SLAHandler) PreviewDeadlines(c *fiber.Ctx) error {
	var req dto.DeadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	in, err := deadlineInput(req)
	if err != nil {
		return err
	}
	d, err := h.service.Preview(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeadlinesResponse{
		Deadlines:           d,
		ResponseTimeLabel:   sla.FormatMinutes(d.ResponseMinutes),
		ResolutionTimeLabel: sla.FormatMinutes(d.ResolutionMinutes),
	}})
}

// StartTracking POST /sla/instances.
func (h *SLAHandler) StartTracking(c *fiber.Ctx) error {
	var req dto.StartTrackingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	in, err := deadlineInput(req.DeadlineRequest)
	if err != nil {
		return err
	}
	view, err := h.service.StartTracking(c.UserContext(), service.TrackInput{
		TicketID: req.TicketID,
		Request:  in,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": instanceResponse(view)})
}

// GetStatus GET /sla/instances/:ticketID.
func (h *SLAHandler) GetStatus(c *fiber.Ctx) error {
	view, err := h.service.GetStatus(c.UserContext(), c.Params("ticketID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": instanceResponse(view)})
}

// GetEscalation GET /sla/instances/:ticketID/escalation.
func (h *SLAHandler) GetEscalation(c *fiber.Ctx) error {
	status, err := h.service.CurrentEscalation(c.UserContext(), c.Params("ticketID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EscalationResponse{
		TicketID:            status.Instance.TicketID,
		LastEscalationLevel: status.Instance.LastEscalationLevel,
		LastCustomerAction:  status.Instance.LastCustomerAction,
		SLAAvailable:        status.Unavailable == nil,
		UnavailableReason:   errorText(status.Unavailable),
		ElapsedLabel:        sla.FormatMinutes(status.View.ElapsedMinutes),
		EscalationView:      status.View,
	}})
}

// ListHistory GET /sla/instances/:ticketID/history.
func (h *SLAHandler) ListHistory(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("ticketID"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.HistoryResponse{
			ID:         e.ID,
			ChangedBy:  e.ChangedBy,
			ChangeType: e.ChangeType,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			CreatedAt:  e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Pause POST /sla/instances/:ticketID/pause.
func (h *SLAHandler) Pause(c *fiber.Ctx) error {
	return h.clockOperation(c, h.service.Pause)
}

// Resume POST /sla/instances/:ticketID/resume.
func (h *SLAHandler) Resume(c *fiber.Ctx) error {
	return h.clockOperation(c, h.service.Resume)
}

// RecordFirstResponse POST /sla/instances/:ticketID/first-response.
func (h *SLAHandler) RecordFirstResponse(c *fiber.Ctx) error {
	return h.clockOperation(c, h.service.RecordFirstResponse)
}

// RecordResolution POST /sla/instances/:ticketID/resolve.
func (h *SLAHandler) RecordResolution(c *fiber.Ctx) error {
	return h.clockOperation(c, h.service.RecordResolution)
}

// MarkAwaitingCustomer POST /sla/instances/:ticketID/awaiting-customer.
func (h *SLAHandler) MarkAwaitingCustomer(c *fiber.Ctx) error {
	var req dto.AwaitingCustomerRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	awaiting := true
	if req.Awaiting != nil {
		awaiting = *req.Awaiting
	}
	view, err := h.service.MarkAwaitingCustomer(c.UserContext(), c.Params("ticketID"), awaiting, service.MutationInput{At: req.At})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": instanceResponse(view)})
}

type clockFunc func(ctx context.Context, ticketID string, in service.MutationInput) (*service.SLAStatusView, error)

func (h *SLAHandler) clockOperation(c *fiber.Ctx, op clockFunc) error {
	var req dto.MutationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	view, err := op(c.UserContext(), c.Params("ticketID"), service.MutationInput{At: req.At})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": instanceResponse(view)})
}

func deadlineInput(req dto.DeadlineRequest) (sla.DeadlineRequest, error) {
	if req.TechnicalCriticality == "" || req.ServiceLevel == "" || req.BusinessCriticality == nil {
		return sla.DeadlineRequest{}, apperrors.NewValidationError(
			"technical_criticality, business_criticality, service_level required", nil)
	}
	in := sla.DeadlineRequest{
		Technical:         req.TechnicalCriticality,
		Business:          domain.BusinessCriticality(*req.BusinessCriticality),
		ServiceLevel:      req.ServiceLevel,
		AdjustmentEnabled: req.AdjustmentEnabled,
	}
	if req.CreatedAt != nil {
		in.CreatedAt = *req.CreatedAt
	}
	if req.Calendar != nil {
		cal, err := req.Calendar.ToDomain()
		if err != nil {
			return sla.DeadlineRequest{}, apperrors.NewValidationError("invalid calendar", map[string]any{"calendar": err.Error()})
		}
		in.Calendar = &cal
	}
	return in, nil
}

func instanceResponse(view *service.SLAStatusView) dto.SLAInstanceResponse {
	inst, snap := view.Instance, view.Snapshot
	return dto.SLAInstanceResponse{
		ID:                       inst.ID,
		TicketID:                 inst.TicketID,
		TechnicalCriticality:     inst.TechnicalCriticality,
		BusinessCriticality:      inst.BusinessCriticality,
		ServiceLevel:             inst.ServiceLevel,
		Priority:                 inst.Priority,
		ServiceHours:             inst.ServiceHours,
		AdjustmentFactor:         inst.AdjustmentFactor,
		CreatedAt:                inst.CreatedAt,
		FirstResponseAt:          inst.FirstResponseAt,
		ResolvedAt:               inst.ResolvedAt,
		IsPaused:                 inst.IsPaused,
		PausedAt:                 inst.PausedAt,
		TotalPausedMinutes:       inst.TotalPausedMinutes(),
		PausedChargeableMinutes:  inst.PausedChargeableMinutes(),
		AwaitingCustomerSince:    inst.AwaitingCustomerSince,
		LastEscalationLevel:      inst.LastEscalationLevel,
		SLAAvailable:             view.Unavailable == nil,
		UnavailableReason:        errorText(view.Unavailable),
		Timer:                    snap,
		RemainingResponseLabel:   sla.FormatMinutes(snap.RemainingResponseMinutes),
		RemainingResolutionLabel: sla.FormatMinutes(snap.RemainingResolutionMinutes),
		UpdatedAt:                inst.UpdatedAt,
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
