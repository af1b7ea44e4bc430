package handlers

import (
	"contestsphere-server/access"
	"contestsphere-server/middleware"
	"contestsphere-server/services"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

func SetupPaymentRoutes(api fiber.Router, h *PaymentHandler) {
	p := api.Group("/payments", middleware.Require(access.PaymentCreate))

	p.Post("/create-payment-intent", h.CreateIntent)
	p.Post("/confirm-payment", h.Confirm)
	p.Get("/my", h.Mine)
}

func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var body contestRef
	if err := c.BodyParser(&body); err != nil {
		return badBody(err)
	}
	res, err := h.Payments.CreateIntent(c.UserContext(), middleware.Identity(c), body.ContestID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	var body struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(err)
	}
	p, err := h.Payments.Confirm(c.UserContext(), middleware.Identity(c), body.PaymentIntentID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Payment confirmed and participation created",
		"participation": p,
	})
}

func (h *PaymentHandler) Mine(c *fiber.Ctx) error {
	out, err := h.Payments.Mine(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}
