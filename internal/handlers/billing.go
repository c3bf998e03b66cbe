package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/services"
)

// BillingNotifier delivers a due-date reminder once per charge and bucket
type BillingNotifier interface {
	Notify(ctx context.Context, n models.BillingDueNotice) (bool, error)
}

// BillingHandler handles billing due-date callbacks from the partner backend
type BillingHandler struct {
	notifier BillingNotifier
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(notifier BillingNotifier) *BillingHandler {
	return &BillingHandler{notifier: notifier}
}

// HandleDueNotice accepts one due-date notice
func (h *BillingHandler) HandleDueNotice(c *fiber.Ctx) error {
	var notice models.BillingDueNotice
	if err := c.BodyParser(&notice); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sent, err := h.notifier.Notify(c.UserContext(), notice)
	switch {
	case errors.Is(err, services.ErrInvalidNotice):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil && !sent:
		slog.Error("billing notice failed", "charge_id", notice.ChargeID, "bucket", notice.Bucket, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record billing notice",
		})
	case err != nil:
		// recorded but the send failed; retrying would not resend
		return c.JSON(fiber.Map{"status": "failed", "error": err.Error()})
	case !sent:
		return c.JSON(fiber.Map{"status": "duplicate"})
	}
	return c.JSON(fiber.Map{"status": "sent"})
}
