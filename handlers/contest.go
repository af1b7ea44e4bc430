package handlers

import (
	"contestsphere-server/access"
	"contestsphere-server/middleware"
	"contestsphere-server/services"

	"github.com/gofiber/fiber/v2"
)

type ContestHandler struct {
	Contests *services.ContestService
}

func SetupContestRoutes(api fiber.Router, h *ContestHandler) {
	contests := api.Group("/contests")

	contests.Get("/", h.List)
	contests.Get("/popular", h.Popular)
	contests.Get("/creator/my-contests", middleware.Require(access.ContestCreate), h.MyContests)
	contests.Get("/creator/summary", middleware.Require(access.ContestCreate), h.Summary)
	contests.Get("/:id", h.Get)

	contests.Post("/", middleware.Require(access.ContestCreate), h.Create)
	contests.Put("/:id", middleware.RequireAuth(), h.Edit)
	contests.Delete("/:id", middleware.RequireAuth(), h.Delete)
	contests.Put("/:id/approve", middleware.Require(access.ContestModerate), h.Approve)
	contests.Put("/:id/reject", middleware.Require(access.ContestModerate), h.Reject)
}

func queryFrom(c *fiber.Ctx) services.ContestQuery {
	return services.ContestQuery{
		Search:      c.Query("search"),
		ContestType: c.Query("contestType"),
		Status:      c.Query("status"),
		Sort:        c.Query("sort"),
		Page:        c.QueryInt("page", 1),
		Limit:       c.QueryInt("limit", services.DefaultPageSize),
	}
}

func (h *ContestHandler) List(c *fiber.Ctx) error {
	page, err := h.Contests.List(c.UserContext(), middleware.Identity(c), queryFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *ContestHandler) ListAll(c *fiber.Ctx) error {
	page, err := h.Contests.ListAll(c.UserContext(), middleware.Identity(c), queryFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *ContestHandler) Popular(c *fiber.Ctx) error {
	contests, err := h.Contests.Popular(c.UserContext(), c.QueryInt("limit", 5))
	if err != nil {
		return err
	}
	return c.JSON(contests)
}

func (h *ContestHandler) Get(c *fiber.Ctx) error {
	contest, err := h.Contests.Get(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(contest)
}

func (h *ContestHandler) MyContests(c *fiber.Ctx) error {
	contests, err := h.Contests.MyContests(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return c.JSON(contests)
}

func (h *ContestHandler) Summary(c *fiber.Ctx) error {
	sum, err := h.Contests.CreatorSummary(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (h *ContestHandler) Create(c *fiber.Ctx) error {
	var in services.ContestInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	contest, err := h.Contests.Create(c.UserContext(), middleware.Identity(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Contest created successfully. Waiting for admin approval.",
		"contest": contest,
	})
}

func (h *ContestHandler) Edit(c *fiber.Ctx) error {
	var in services.ContestInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	contest, err := h.Contests.Edit(c.UserContext(), middleware.Identity(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Contest updated successfully", "contest": contest})
}

func (h *ContestHandler) Delete(c *fiber.Ctx) error {
	if err := h.Contests.Delete(c.UserContext(), middleware.Identity(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Contest deleted successfully"})
}

func (h *ContestHandler) Approve(c *fiber.Ctx) error {
	contest, err := h.Contests.Approve(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Contest approved successfully", "contest": contest})
}

func (h *ContestHandler) Reject(c *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badBody(err)
		}
	}
	contest, err := h.Contests.Reject(c.UserContext(), middleware.Identity(c), c.Params("id"), body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Contest rejected", "contest": contest})
}
