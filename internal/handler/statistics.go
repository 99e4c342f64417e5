package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	statisticsDateLayout = "2006-01-02"
	expiringWindow       = 30 * 24 * time.Hour
	defaultStatsRange    = 30 * 24 * time.Hour
)

// HandleLicenseStatistics counts licenses per category and the daily
// notification volume between ?start_date= and ?end_date= (YYYY-MM-DD, inclusive).
func (h *Handler) HandleLicenseStatistics(c *fiber.Ctx) error {
	now := time.Now().UTC()

	start := now.Add(-defaultStatsRange)
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(statisticsDateLayout, v)
		if err != nil {
			return dateError(c, "start_date")
		}
		start = t
	}

	end := now
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(statisticsDateLayout, v)
		if err != nil {
			return dateError(c, "end_date")
		}
		end = t.Add(24*time.Hour - time.Nanosecond)
	}

	if end.Before(start) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    400,
			"message": "end_date is before start_date",
		})
	}

	stats, err := h.licenses.Statistics(expiringWindow)
	if err != nil {
		h.logger.Error("license statistics failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    500,
			"message": "failed to compute license statistics",
		})
	}

	stats.DailyEvents, err = h.events.DailyCounts(start, end)
	if err != nil {
		h.logger.Error("daily event counts failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    500,
			"message": "failed to load daily events",
		})
	}

	return c.JSON(fiber.Map{
		"code":       200,
		"message":    "success",
		"data":       stats,
		"usage_rate": stats.GetUsageRate(),
	})
}

func dateError(c *fiber.Ctx, field string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"code":    400,
		"message": "invalid " + field,
		"errors": []fiber.Map{
			{"field": field, "message": "date must be formatted as YYYY-MM-DD"},
		},
	})
}
