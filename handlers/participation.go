package handlers

import (
	"contestsphere-server/access"
	"contestsphere-server/middleware"
	"contestsphere-server/services"

	"github.com/gofiber/fiber/v2"
)

type ParticipationHandler struct {
	Participations *services.ParticipationService
	Contests       *services.ContestService
}

func SetupParticipationRoutes(api fiber.Router, h *ParticipationHandler) {
	p := api.Group("/participations", middleware.RequireAuth())

	p.Post("/join", middleware.Require(access.ContestJoin), h.Join)
	p.Post("/submit", middleware.Require(access.TaskSubmit), h.Submit)
	p.Get("/my", h.Mine)
	p.Get("/wins", h.Wins)
	p.Get("/contest/:id/submissions", middleware.Require(access.SubmissionsViewOwn), h.Submissions)
	p.Post("/declare-winner", middleware.Require(access.WinnerDeclareOwn), h.DeclareWinner)
}

type contestRef struct {
	ContestID string `json:"contestId"`
}

func (h *ParticipationHandler) Join(c *fiber.Ctx) error {
	var body contestRef
	if err := c.BodyParser(&body); err != nil {
		return badBody(err)
	}
	p, err := h.Participations.Join(c.UserContext(), middleware.Identity(c), body.ContestID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Successfully joined contest",
		"participation": p,
	})
}

func (h *ParticipationHandler) Submit(c *fiber.Ctx) error {
	var body struct {
		ContestID     string `json:"contestId"`
		SubmittedTask string `json:"submittedTask"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(err)
	}
	p, err := h.Participations.Submit(c.UserContext(), middleware.Identity(c), body.ContestID, body.SubmittedTask)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Task submitted successfully", "participation": p})
}

func (h *ParticipationHandler) Mine(c *fiber.Ctx) error {
	out, err := h.Participations.Mine(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *ParticipationHandler) Wins(c *fiber.Ctx) error {
	out, err := h.Participations.Wins(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *ParticipationHandler) Submissions(c *fiber.Ctx) error {
	out, err := h.Participations.Submissions(c.UserContext(), middleware.Identity(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *ParticipationHandler) DeclareWinner(c *fiber.Ctx) error {
	var body struct {
		ContestID       string `json:"contestId"`
		ParticipationID string `json:"participationId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(err)
	}
	contest, err := h.Contests.DeclareWinner(c.UserContext(), middleware.Identity(c), body.ContestID, body.ParticipationID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Winner declared successfully", "contest": contest})
}
