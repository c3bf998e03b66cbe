package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/studiolens/whatsapp-relay/internal/config"
	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/services"
)

// InboundProcessor runs one conversation turn for a normalized delivery
type InboundProcessor interface {
	HandleInbound(ctx context.Context, ev messaging.InboundEvent) services.Result
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	relay    InboundProcessor
	provider string
}

// NewWhatsAppHandler creates a new WhatsApp handler for the configured provider's payload style
func NewWhatsAppHandler(relay InboundProcessor, provider string) *WhatsAppHandler {
	return &WhatsAppHandler{
		relay:    relay,
		provider: provider,
	}
}

// HandleWebhook processes incoming WhatsApp messages. The provider always gets a 200
// so it never redelivers something we chose to ignore.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	ev, err := h.parse(c)
	if err != nil {
		slog.Warn("unreadable webhook payload", "provider", h.provider, "error", err)
		return c.JSON(services.Result{Status: services.StatusIgnored, Reason: "invalid_payload"})
	}

	res := h.relay.HandleInbound(c.UserContext(), ev)
	return c.JSON(res)
}

func (h *WhatsAppHandler) parse(c *fiber.Ctx) (messaging.InboundEvent, error) {
	if h.provider == config.ProviderTwilio {
		form := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			form[string(key)] = string(value)
		})
		return messaging.ParseTwilio(form), nil
	}
	return messaging.ParseZAPI(c.Body())
}
