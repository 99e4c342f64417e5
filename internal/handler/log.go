package handler

import (
	"github.com/gofiber/fiber/v2"

	"license-binding-server/internal/model"
)

// HandleGetLogs pages through recorded notifications, newest first.
// ?event_type= narrows the page to one notification type.
func (h *Handler) HandleGetLogs(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	var (
		logs  []model.NotificationEvent
		total int64
		err   error
	)
	if eventType := c.Query("event_type"); eventType != "" {
		logs, total, err = h.events.GetEventsByType(eventType, page, pageSize)
	} else {
		logs, total, err = h.events.GetNotificationEvents(page, pageSize)
	}
	if err != nil {
		h.logger.Error("load notification events failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  pageSize,
	})
}
