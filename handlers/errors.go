package handlers

import (
	"errors"

	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler writes every error as {"message": ...}. Internal failures are
// logged and reported as a generic server error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	status := appErr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.FromContext(c.UserContext()).Error("request failed",
			zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"message": "Server error"})
	}

	ae, _ := appErr.As(err)
	return c.Status(status).JSON(fiber.Map{"message": ae.Message})
}

func badBody(err error) error {
	return appErr.Wrap(err, appErr.CodeValidation, "Invalid request body")
}
