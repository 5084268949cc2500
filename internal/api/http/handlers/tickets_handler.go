package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/clearbridge/support-sync/internal/api/dto"
	"github.com/clearbridge/support-sync/internal/auth"
	"github.com/clearbridge/support-sync/internal/domain"
	"github.com/clearbridge/support-sync/internal/service"
	"github.com/clearbridge/support-sync/internal/store"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// TicketsHandler exposes the command surface: create, claim, resolve,
// append, plus snapshot reads.
type TicketsHandler struct {
	tickets      *service.TicketService
	claims       *service.ClaimService
	lifecycle    *service.LifecycleService
	conversation *service.ConversationService
}

// TicketsDependencies bundles services for the handler.
type TicketsDependencies struct {
	Tickets      *service.TicketService
	Claims       *service.ClaimService
	Lifecycle    *service.LifecycleService
	Conversation *service.ConversationService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(deps TicketsDependencies) *TicketsHandler {
	return &TicketsHandler{
		tickets:      deps.Tickets,
		claims:       deps.Claims,
		lifecycle:    deps.Lifecycle,
		conversation: deps.Conversation,
	}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.Subject, service.TicketCreateInput{
		Subject:        req.Subject,
		Description:    req.Description,
		Department:     req.Department,
		Priority:       req.Priority,
		SentimentScore: req.SentimentScore,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var ticket *domain.Ticket
	var err error
	if principal.Role == auth.RoleCustomer {
		ticket, err = h.tickets.GetTicketForOwner(c.UserContext(), principal.Subject, c.Params("id"))
	} else {
		ticket, err = h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	filter := ParseTicketFilter(c, principal)
	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ClaimTicket POST /api/tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.ClaimTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	label := principal.Label
	if req.AgentLabel != "" {
		label = req.AgentLabel
	}
	ticket, err := h.claims.Claim(c.UserContext(), c.Params("id"), principal.Subject, label, req.ObservedVersion)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ResolveTicket POST /api/tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Resolve(c.UserContext(), c.Params("id"), principal.Subject, req.ObservedVersion)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AppendMessage POST /api/tickets/:id/messages.
func (h *TicketsHandler) AppendMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	var req dto.AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticketID := c.Params("id")
	sender := domain.SenderAgent
	if principal.Role == auth.RoleCustomer {
		sender = domain.SenderCustomer
		if _, err := h.tickets.GetTicketForOwner(c.UserContext(), principal.Subject, ticketID); err != nil {
			return err
		}
	}
	label := principal.Label
	msg, err := h.conversation.AppendMessage(c.UserContext(), ticketID, sender, &label, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromMessage(msg)})
}

// ParseTicketFilter builds the list/subscription filter from query
// parameters. Customers are always scoped to their own tickets.
func ParseTicketFilter(c *fiber.Ctx, principal *auth.Principal) store.TicketFilter {
	filter := store.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if deptStr := c.Query("department"); deptStr != "" {
		dept := domain.Department(strings.TrimSpace(deptStr))
		filter.Department = &dept
	}
	switch c.Query("assigned") {
	case "none":
		filter.Unassigned = true
	case "me":
		agentID := principal.Subject
		filter.AssignedAgentID = &agentID
	}
	if principal.Role == auth.RoleCustomer {
		ownerID := principal.Subject
		filter.OwnerID = &ownerID
	}
	return filter
}
