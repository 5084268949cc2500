package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/clearbridge/support-sync/internal/api/dto"
	"github.com/clearbridge/support-sync/internal/auth"
	"github.com/clearbridge/support-sync/internal/service"
	"github.com/clearbridge/support-sync/internal/store"
	"github.com/clearbridge/support-sync/internal/subscription"
	apperrors "github.com/clearbridge/support-sync/pkg/util"
)

// StreamHandler serves subscriptions as server-sent event streams. The
// snapshot always arrives as the first event; updates follow in
// per-ticket version order.
type StreamHandler struct {
	router  *subscription.Router
	tickets *service.TicketService
}

// NewStreamHandler constructs the handler.
func NewStreamHandler(router *subscription.Router, tickets *service.TicketService) *StreamHandler {
	return &StreamHandler{router: router, tickets: tickets}
}

// StreamTicket GET /api/tickets/:id/events serves a by-id subscription.
func (h *StreamHandler) StreamTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	ticketID := c.Params("id")
	if principal.Role == auth.RoleCustomer {
		if _, err := h.tickets.GetTicketForOwner(c.UserContext(), principal.Subject, ticketID); err != nil {
			return err
		}
	}

	sub, err := h.router.SubscribeTicket(c.UserContext(), ticketID)
	if err != nil {
		return mapSubscribeError(err, ticketID)
	}
	streamEvents(c, sub)
	return nil
}

// StreamTickets GET /api/tickets/events serves a predicate subscription.
func (h *StreamHandler) StreamTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("identity required")
	}
	filter := ParseTicketFilter(c, principal)

	sub, err := h.router.SubscribeQuery(c.UserContext(), filter)
	if err != nil {
		return mapSubscribeError(err, "")
	}
	streamEvents(c, sub)
	return nil
}

func streamEvents(c *fiber.Ctx, sub *subscription.Subscription) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		for notification := range sub.Events() {
			payload, err := json.Marshal(dto.StreamEvent{
				Kind:   string(notification.Kind),
				Ticket: dto.FromTicket(&notification.Ticket),
			})
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", notification.Kind, payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
}

func mapSubscribeError(err error, ticketID string) error {
	if errors.Is(err, store.ErrNotFound) {
		details := map[string]any{}
		if ticketID != "" {
			details["ticket_id"] = ticketID
		}
		return apperrors.NewNotFound("ticket", details)
	}
	return apperrors.NewInternalError(err)
}
