package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// AppOptions configures the Fiber application.
type AppOptions struct {
	// ProxyHeader names the header carrying the client IP, e.g. X-Forwarded-For.
	// Empty means the connection's remote address is used.
	ProxyHeader string
	// TrustedProxies restricts ProxyHeader to requests arriving from these
	// addresses or CIDR ranges. Empty trusts every peer.
	TrustedProxies []string
	Logger         *slog.Logger
}

func NewApp(opts AppOptions) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ProxyHeader:             opts.ProxyHeader,
		EnableIPValidation:      opts.ProxyHeader != "",
		EnableTrustedProxyCheck: len(opts.TrustedProxies) > 0,
		TrustedProxies:          opts.TrustedProxies,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
				return c.Status(code).JSON(fiber.Map{"error": "internal error"})
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
}
