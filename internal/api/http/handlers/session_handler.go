package handlers

import (
	"context"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/api/dto"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/auth"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/dispatch"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/service"
	apperrors "github.com/yhoroy12/lujo-crm-v2-sub000/pkg/util"
)

// SessionHandler exposes session reconciliation and the offer flow.
type SessionHandler struct {
	reconciler  *service.ReconcileService
	assignments *service.AssignmentService
	registry    *dispatch.Registry

	mu      sync.Mutex
	watches map[string]*notify.Subscription
}

// NewSessionHandler builds the handler.
func NewSessionHandler(reconciler *service.ReconcileService, assignments *service.AssignmentService, registry *dispatch.Registry) *SessionHandler {
	return &SessionHandler{
		reconciler:  reconciler,
		assignments: assignments,
		registry:    registry,
		watches:     make(map[string]*notify.Subscription),
	}
}

// watchOwnership reattaches the ownership watch for a reconciled ticket,
// replacing any previous watch held for the operator. When ownership is
// lost the cached session is forgotten so the next reconcile starts clean.
func (h *SessionHandler) watchOwnership(ticketID, operatorRef string) {
	ctx := context.Background()
	sub, err := h.assignments.WatchOwnership(ctx, ticketID, operatorRef, func(string) {
		h.reconciler.Forget(ctx, operatorRef)
	})
	if err != nil {
		return
	}
	h.mu.Lock()
	if prev := h.watches[operatorRef]; prev != nil {
		prev.Close()
	}
	h.watches[operatorRef] = sub
	h.mu.Unlock()
}

// Active resolves the caller's authoritative active ticket, if any.
func (h *SessionHandler) Active(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	ticket, err := h.reconciler.Reconcile(c.UserContext(), principal.ActorRef)
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"active": false})
	}
	h.watchOwnership(ticket.ID, principal.ActorRef)
	return c.JSON(fiber.Map{
		"active": true,
		"ticket": dto.ToTicketResponse(ticket),
	})
}

type onlineRequest struct {
	Channel string `json:"channel"`
}

// Online registers the caller for offers on a channel.
func (h *SessionHandler) Online(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	var req onlineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	channel := domain.Channel(strings.ToUpper(req.Channel))
	if channel != domain.ChannelChat && channel != domain.ChannelMail {
		return apperrors.NewValidationError("unknown channel", map[string]any{"channel": req.Channel})
	}
	h.registry.Register(principal.ActorRef, principal.Role, channel)
	return c.JSON(fiber.Map{"online": true, "channel": channel})
}

// Offline drops the caller's dispatcher and pending offers.
func (h *SessionHandler) Offline(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	h.registry.Unregister(principal.ActorRef)
	h.mu.Lock()
	if sub := h.watches[principal.ActorRef]; sub != nil {
		sub.Close()
		delete(h.watches, principal.ActorRef)
	}
	h.mu.Unlock()
	return c.JSON(fiber.Map{"online": false})
}

// Offer returns the caller's outstanding offer, if one is presented.
func (h *SessionHandler) Offer(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	d := h.registry.Get(principal.ActorRef)
	if d == nil {
		return apperrors.NewValidationError("operator not online", nil)
	}
	offer := d.Current()
	if offer == nil {
		return c.JSON(fiber.Map{"offer": nil})
	}
	return c.JSON(fiber.Map{"offer": dto.OfferResponse{
		TicketID:      offer.TicketID,
		Channel:       string(offer.Channel),
		ClientSummary: offer.ClientSummary,
		OfferedAt:     offer.OfferedAt,
		Backlog:       d.BacklogSize(),
	}})
}

// Accept resolves the outstanding offer by claiming the ticket. A lost race
// reports accepted=false without an error; the dispatcher advances on its own.
func (h *SessionHandler) Accept(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	d := h.registry.Get(principal.ActorRef)
	if d == nil {
		return apperrors.NewValidationError("operator not online", nil)
	}
	ticket, err := d.Accept(c.UserContext())
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"accepted": false})
	}
	return c.JSON(fiber.Map{
		"accepted": true,
		"ticket":   dto.ToTicketResponse(ticket),
	})
}

// Reject declines the outstanding offer; the ticket stays queued.
func (h *SessionHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewNotAuthenticated("operator required")
	}
	d := h.registry.Get(principal.ActorRef)
	if d == nil {
		return apperrors.NewValidationError("operator not online", nil)
	}
	if err := d.Reject(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rejected": true})
}
