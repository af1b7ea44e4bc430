package handlers

import (
	"contestsphere-server/database"
	"contestsphere-server/middleware"
	"contestsphere-server/pkg/logger"
	"contestsphere-server/services"
	"contestsphere-server/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer calls into.
type Deps struct {
	DB             *gorm.DB
	Auth           *services.AuthService
	Users          *services.UserService
	Contests       *services.ContestService
	Participations *services.ParticipationService
	Payments       *services.PaymentService
	Counters       *services.CounterService
	Store          storage.ObjectStore
	AuthRateLimit  int
}

// Setup mounts every route under /api and the health check at /healthz.
func Setup(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), d.DB); err != nil {
			logger.FromContext(c.UserContext()).Error("health check: database unreachable", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", middleware.Authenticate(d.Auth))

	users := &UserHandler{Users: d.Users, Auth: d.Auth}
	contests := &ContestHandler{Contests: d.Contests}

	limit := d.AuthRateLimit
	if limit <= 0 {
		limit = 20
	}
	SetupAuthRoutes(api, users, AuthLimiter(limit))
	SetupUserRoutes(api, users)
	SetupContestRoutes(api, contests)
	SetupParticipationRoutes(api, &ParticipationHandler{Participations: d.Participations, Contests: d.Contests})
	SetupPaymentRoutes(api, &PaymentHandler{Payments: d.Payments})
	SetupAdminRoutes(api, &AdminHandler{Users: d.Users, Counters: d.Counters}, contests)
	SetupUploadRoutes(api, &UploadHandler{Store: d.Store})
}
