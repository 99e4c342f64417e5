package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"license-binding-server/internal/service"
	"license-binding-server/internal/util"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Handler serves the HTTP API over the license and credential services.
type Handler struct {
	licenses    *service.LicenseStore
	credentials *service.CredentialStore
	auth        *service.AuthService
	events      *service.EventLog
	tokens      *util.TokenManager
	validate    *validator.Validate
	logger      *slog.Logger
}

// Deps are the services a Handler needs.
type Deps struct {
	Licenses    *service.LicenseStore
	Credentials *service.CredentialStore
	Auth        *service.AuthService
	Events      *service.EventLog
	Tokens      *util.TokenManager
	Logger      *slog.Logger
}

func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		licenses:    deps.Licenses,
		credentials: deps.Credentials,
		auth:        deps.Auth,
		events:      deps.Events,
		tokens:      deps.Tokens,
		validate:    validator.New(),
		logger:      logger,
	}
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrStorageFailure):
		return fiber.StatusInternalServerError
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrMismatch):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	return h.failWithStatus(c, statusFor(err), err)
}

func (h *Handler) failWithStatus(c *fiber.Ctx, status int, err error) error {
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": service.Reason(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// parseBody decodes the JSON body into dst and runs its validate tags.
func (h *Handler) parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New("invalid field: " + verrs[0].Field())
		}
		return errors.New("invalid request body")
	}
	return nil
}

func pagination(c *fiber.Ctx) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	pageSize, _ = strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
