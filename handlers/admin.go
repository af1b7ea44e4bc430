package handlers

import (
	"contestsphere-server/access"
	"contestsphere-server/middleware"
	"contestsphere-server/services"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Users    *services.UserService
	Counters *services.CounterService
}

func SetupAdminRoutes(api fiber.Router, h *AdminHandler, contests *ContestHandler) {
	admin := api.Group("/admin", middleware.Require(access.UsersManage))

	admin.Get("/users", h.ListUsers)
	admin.Put("/users/role", h.SetRole)
	admin.Delete("/users/:id", h.DeleteUser)

	admin.Get("/contests", contests.ListAll)
	admin.Put("/contests/:id/approve", contests.Approve)
	admin.Put("/contests/:id/reject", contests.Reject)

	admin.Post("/reconcile", h.Reconcile)
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.Users.List(c.UserContext(), middleware.Identity(c), c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultPageSize))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	var body struct {
		UserID  string `json:"userId"`
		Role    string `json:"role"`
		NewRole string `json:"newRole"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(err)
	}
	role := body.Role
	if role == "" {
		role = body.NewRole
	}
	u, err := h.Users.SetRole(c.UserContext(), middleware.Identity(c), body.UserID, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Role updated successfully", "user": u})
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.Users.Delete(c.UserContext(), middleware.Identity(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.Counters.Reconcile(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(report)
}
