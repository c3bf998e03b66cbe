package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/studiolens/whatsapp-relay/internal/services"
	"github.com/studiolens/whatsapp-relay/internal/storage"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

const adminLogLimit = 20

// AdminHandler handles admin operations on conversation sessions
type AdminHandler struct {
	sessions *services.SessionManager
	store    storage.Store
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *services.SessionManager, store storage.Store) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		store:    store,
	}
}

// GetSession shows the cached and durable copies of a session plus its latest messages
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	phone := utils.NormalizePhone(c.Params("phone"))
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid phone",
		})
	}

	cached, durable, err := h.sessions.Peek(c.UserContext(), phone)
	if err != nil {
		slog.Error("peek session failed", "phone", utils.MaskPhone(phone), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch session",
		})
	}
	if cached == nil && durable == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	logs, err := h.store.ListMessageLogs(c.UserContext(), phone, adminLogLimit)
	if err != nil {
		slog.Warn("list message logs failed", "phone", utils.MaskPhone(phone), "error", err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"cached":   cached,
		"durable":  durable,
		"messages": logs,
	})
}

// DeleteSession resets a conversation: cache entry, durable row and message logs
func (h *AdminHandler) DeleteSession(c *fiber.Ctx) error {
	phone := utils.NormalizePhone(c.Params("phone"))
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid phone",
		})
	}

	err := h.sessions.Delete(c.UserContext(), phone)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	if err != nil {
		slog.Error("delete session failed", "phone", utils.MaskPhone(phone), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete session",
		})
	}

	slog.Info("session deleted by admin", "phone", utils.MaskPhone(phone))
	return c.JSON(fiber.Map{"success": true})
}

// InvalidateCache drops only the cached copy so the next turn reloads durable state
func (h *AdminHandler) InvalidateCache(c *fiber.Ctx) error {
	phone := utils.NormalizePhone(c.Params("phone"))
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid phone",
		})
	}

	if err := h.sessions.Invalidate(c.UserContext(), phone); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Cache unavailable",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
