package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-distribution/internal/api/dto"
	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/service"
)

// AccountsHandler serves agent CRUD for admins and sub-agent CRUD for agents.
// Which role is managed follows from the caller's role.
type AccountsHandler struct {
	principals *service.PrincipalService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(principals *service.PrincipalService) *AccountsHandler {
	return &AccountsHandler{principals: principals}
}

// List handles GET /agents and GET /subagents.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	accounts, err := h.principals.List(c.UserContext(), caller.Ref())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPrincipalList(accounts)})
}

// Get handles GET /agents/:id and GET /subagents/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	account, err := h.principals.Get(c.UserContext(), caller.Ref(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPrincipalResponse(account)})
}

// Create handles POST /agents and POST /subagents.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AccountCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	account, err := h.principals.Create(c.UserContext(), caller.Ref(), service.AccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPrincipalResponse(account)})
}

// Update handles PUT /agents/:id and PUT /subagents/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AccountUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	account, err := h.principals.Update(c.UserContext(), caller.Ref(), c.Params("id"), service.AccountUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPrincipalResponse(account)})
}

// Delete handles DELETE /agents/:id and DELETE /subagents/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.principals.Delete(c.UserContext(), caller.Ref(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
