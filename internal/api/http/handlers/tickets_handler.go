package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/api/dto"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/auth"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/service"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// TicketsHandler exposes intake and lifecycle operations.
type TicketsHandler struct {
	intake      *service.IntakeService
	assignments *service.AssignmentService
	audit       repository.AuditRepository
}

// NewTicketsHandler builds the handler.
func NewTicketsHandler(intake *service.IntakeService, assignments *service.AssignmentService, audit repository.AuditRepository) *TicketsHandler {
	return &TicketsHandler{intake: intake, assignments: assignments, audit: audit}
}

// Create enqueues a new ticket.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.intake.CreateTicket(c.UserContext(), service.TicketCreateInput{
		ClientRef:     req.ClientRef,
		ClientSummary: req.ClientSummary,
		Channel:       domain.Channel(strings.ToUpper(req.Channel)),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToTicketResponse(ticket))
}

// Get returns a ticket with its timeline.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, timeline, err := h.intake.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketDetailResponse{
		Ticket:   dto.ToTicketResponse(ticket),
		Timeline: dto.ToTimelineList(timeline),
	})
}

// Claim atomically takes ownership of a queued ticket for the caller.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	ticket, err := h.assignments.Claim(c.UserContext(), c.Params("id"), principal.ActorRef, principal.Role)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToTicketResponse(ticket))
}

// Transition applies a lifecycle move on behalf of the caller.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("actor required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.assignments.Transition(c.UserContext(), c.Params("id"),
		domain.TicketStatus(req.From), domain.TicketStatus(req.To),
		principal.ActorRef, principal.Role, req.Justification)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToTicketResponse(ticket))
}

// Audit lists the immutable transition records for a ticket.
func (h *TicketsHandler) Audit(c *fiber.Ctx) error {
	records, err := h.audit.ListByTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	out := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		out = append(out, fiber.Map{
			"actor_ref":     r.ActorRef,
			"actor_role":    r.ActorRole,
			"from_status":   r.FromStatus,
			"to_status":     r.ToStatus,
			"justification": r.Justification,
			"created_at":    r.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"audit": out})
}

// Forward escalates an in-service ticket to another department.
func (h *TicketsHandler) Forward(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("actor required")
	}
	var req dto.ForwardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.Department) == "" {
		return apperrors.NewValidationError("department required", nil)
	}
	ticket, err := h.assignments.Forward(c.UserContext(), service.ForwardInput{
		TicketID:      c.Params("id"),
		ActorRef:      principal.ActorRef,
		Role:          principal.Role,
		Justification: req.Justification,
		Department:    req.Department,
		AccountType:   req.AccountType,
		IssueType:     req.IssueType,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.ToTicketResponse(ticket))
}
