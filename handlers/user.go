package handlers

import (
	"time"

	"contestsphere-server/access"
	"contestsphere-server/middleware"
	"contestsphere-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type UserHandler struct {
	Users *services.UserService
	Auth  *services.AuthService
}

func SetupAuthRoutes(api fiber.Router, h *UserHandler, limit fiber.Handler) {
	auth := api.Group("/auth", limit)
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
}

// AuthLimiter caps attempts per client IP on the auth routes.
func AuthLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 15 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many attempts, please try again later",
			})
		},
	})
}

func SetupUserRoutes(api fiber.Router, h *UserHandler) {
	users := api.Group("/users")
	users.Get("/leaderboard", h.Leaderboard)
	users.Get("/me", middleware.Require(access.ProfileManage), h.Me)
	users.Put("/me", middleware.Require(access.ProfileManage), h.UpdateMe)
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	res, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *UserHandler) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	res, err := h.Auth.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *UserHandler) Leaderboard(c *fiber.Ctx) error {
	board, err := h.Users.Leaderboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	u, err := h.Users.Me(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	u, err := h.Users.UpdateProfile(c.UserContext(), middleware.Identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": u})
}
