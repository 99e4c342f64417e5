package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"license-binding-server/internal/middleware"
	"license-binding-server/internal/model"
	"license-binding-server/internal/service"
)

func (h *Handler) HandleLogin(c *fiber.Ctx) error {
	input := new(model.LoginInput)
	if err := h.parseBody(c, input); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.auth.Login(service.LoginRequest{
		Username:   input.Username,
		Password:   input.Password,
		HardwareID: input.HWID,
		SourceIP:   c.IP(),
	})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return h.failWithStatus(c, fiber.StatusForbidden, err)
		}
		return h.fail(c, err)
	}

	token, err := h.tokens.GenerateToken(session.Username, session.Admin)
	if err != nil {
		return h.failWithStatus(c, fiber.StatusInternalServerError, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	return c.JSON(fiber.Map{
		"message":  "login successful",
		"token":    token,
		"username": session.Username,
		"admin":    session.Admin,
	})
}

func (h *Handler) HandleLogout(c *fiber.Ctx) error {
	if claims := middleware.CurrentClaims(c); claims != nil {
		h.tokens.RevokeToken(claims)
	}
	c.ClearCookie(middleware.SessionCookie)

	return c.JSON(fiber.Map{
		"message": "logged out",
	})
}

func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	admin, _ := c.Locals(middleware.LocalAdmin).(bool)
	return c.JSON(fiber.Map{
		"authenticated": true,
		"username":      middleware.CurrentUser(c),
		"admin":         admin,
	})
}

// HandleRegister creates a user account directly, without a license.
func (h *Handler) HandleRegister(c *fiber.Ctx) error {
	input := new(model.RegisterInput)
	if err := h.parseBody(c, input); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.credentials.Register(input.Username, input.Password); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "user registered",
		"username": input.Username,
	})
}

func (h *Handler) HandleListUsers(c *fiber.Ctx) error {
	creds, err := h.credentials.List()
	if err != nil {
		return h.fail(c, err)
	}

	users := make([]model.UserView, 0, len(creds))
	for _, cred := range creds {
		users = append(users, model.UserView{Username: cred.Username})
	}
	return c.JSON(fiber.Map{
		"users": users,
		"total": len(users),
	})
}

func (h *Handler) HandleRemoveUser(c *fiber.Ctx) error {
	username := c.Params("username")
	if username == "" {
		return badRequest(c, "username is required")
	}

	if err := h.credentials.Remove(username); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "user removed",
	})
}
