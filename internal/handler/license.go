package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"license-binding-server/internal/middleware"
	"license-binding-server/internal/model"
	"license-binding-server/internal/service"
)

func (h *Handler) HandleLicenseGenerate(c *fiber.Ctx) error {
	input := new(model.IssueInput)
	if len(c.Body()) > 0 {
		if err := h.parseBody(c, input); err != nil {
			return badRequest(c, err.Error())
		}
	}

	license, err := h.licenses.Issue(service.IssueRequest{
		Owner:       input.User,
		HardwareID:  input.HWID,
		ExpiresAt:   input.Expiration,
		PerformedBy: middleware.CurrentUser(c),
		SourceIP:    c.IP(),
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "license generated",
		"license": license,
	})
}

// HandleLicenseValidate validates a license and, on success, consumes it and
// registers the presented credentials.
func (h *Handler) HandleLicenseValidate(c *fiber.Ctx) error {
	input := new(model.ValidateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"valid":   false,
			"message": "invalid request body",
		})
	}

	license, err := h.licenses.ValidateAndConsume(service.ValidateRequest{
		Key:        input.LicenseKey,
		Username:   input.Username,
		Password:   input.Password,
		HardwareID: input.HWID,
		SourceIP:   c.IP(),
	})
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, service.ErrStorageFailure) {
			status = fiber.StatusInternalServerError
			h.logger.Error("license validation failed", "error", err)
		}
		return c.Status(status).JSON(fiber.Map{
			"valid":   false,
			"message": service.Reason(err),
		})
	}

	return c.JSON(fiber.Map{
		"valid":   true,
		"message": "license validated",
		"license": license,
	})
}

func (h *Handler) HandleLicenseList(c *fiber.Ctx) error {
	return h.listLicenses(c, "")
}

// HandleLicenseListAdvanced lists licenses matching ?filter=valid|expired|used|blocked.
func (h *Handler) HandleLicenseListAdvanced(c *fiber.Ctx) error {
	return h.listLicenses(c, c.Query("filter"))
}

func (h *Handler) listLicenses(c *fiber.Ctx, filter string) error {
	licenses, err := h.licenses.List(filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"licenses": licenses,
		"total":    len(licenses),
	})
}

func (h *Handler) HandleGetLicense(c *fiber.Ctx) error {
	license, err := h.licenses.Get(c.Params("key"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(license)
}

func (h *Handler) HandleLicenseRenew(c *fiber.Ctx) error {
	input := new(model.RenewInput)
	if err := h.parseBody(c, input); err != nil {
		return badRequest(c, err.Error())
	}

	performedBy := input.PerformedBy
	if performedBy == "" {
		performedBy = middleware.CurrentUser(c)
	}
	if err := h.licenses.Renew(c.Params("key"), *input.NewExpiration, performedBy); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "license renewed",
	})
}

func (h *Handler) HandleLicenseBlock(c *fiber.Ctx) error {
	if err := h.licenses.Block(c.Params("key"), middleware.CurrentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "license blocked",
	})
}

func (h *Handler) HandleLicenseUnblock(c *fiber.Ctx) error {
	if err := h.licenses.Unblock(c.Params("key"), middleware.CurrentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "license unblocked",
	})
}

func (h *Handler) HandleLicenseResetHWID(c *fiber.Ctx) error {
	if err := h.licenses.ResetBinding(c.Params("key"), middleware.CurrentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "hardware binding reset",
	})
}

func (h *Handler) HandleLicenseDelete(c *fiber.Ctx) error {
	if err := h.licenses.Remove(c.Params("key")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "license removed",
	})
}

// HandleLicenseSync pushes every license to the spreadsheet mirror.
func (h *Handler) HandleLicenseSync(c *fiber.Ctx) error {
	n, err := h.licenses.SyncAll(c.UserContext())
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return h.failWithStatus(c, fiber.StatusServiceUnavailable, err)
		}
		return h.failWithStatus(c, fiber.StatusBadGateway, err)
	}
	return c.JSON(fiber.Map{
		"message": "licenses synchronized",
		"synced":  n,
	})
}
