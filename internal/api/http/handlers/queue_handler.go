package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/api/dto"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/auth"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/service"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// QueueHandler exposes the live queue and the escalation backlog.
type QueueHandler struct {
	queues      *service.QueueService
	assignments *service.AssignmentService
}

// NewQueueHandler builds the handler.
func NewQueueHandler(queues *service.QueueService, assignments *service.AssignmentService) *QueueHandler {
	return &QueueHandler{queues: queues, assignments: assignments}
}

// Live returns the channel's pending queue in serving order.
func (h *QueueHandler) Live(c *fiber.Ctx) error {
	channel := domain.Channel(strings.ToUpper(c.Params("channel")))
	ordered, err := h.queues.LiveQueue(c.UserContext(), channel)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"channel": channel,
		"tickets": dto.ToTicketList(ordered),
	})
}

// Escalations returns a department's pending backlog in urgency order.
func (h *QueueHandler) Escalations(c *fiber.Ctx) error {
	department := c.Params("department")
	ordered, err := h.queues.EscalationQueue(c.UserContext(), department)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"department": department,
		"demands":    dto.ToDemandList(ordered),
	})
}

// TakeDemand claims a pending escalation for the caller.
func (h *QueueHandler) TakeDemand(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	ticket, err := h.assignments.TakeDemand(c.UserContext(), c.Params("id"), principal.ActorRef, principal.Role)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToTicketResponse(ticket))
}
