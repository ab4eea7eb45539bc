// Package server assembles the HTTP application from its dependencies.
package server

import (
	"errors"
	"strings"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/realtime"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deps are the collaborators of the HTTP application. Only DB and Config are required.
type Deps struct {
	DB     *gorm.DB
	Config *config.Config

	Cache          services.Cache
	Events         services.EventPublisher
	Hub            *realtime.Hub
	Gateway        payment.Gateway
	LimiterStorage fiber.Storage
}

// New wires repositories, services and handlers into a Fiber app.
func New(deps Deps) (*fiber.App, error) {
	if deps.DB == nil || deps.Config == nil {
		return nil, errors.New("server: DB and Config are required")
	}
	cfg := deps.Config

	productRepo := repositories.NewGORMProductRepository(deps.DB)
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	cartRepo := repositories.NewGORMCartRepository(deps.DB)
	orderRepo := repositories.NewGORMOrderRepository(deps.DB)
	paymentRepo := repositories.NewGORMPaymentRepository(deps.DB)
	feedbackRepo := repositories.NewGORMFeedbackRepository(deps.DB)

	authService := services.NewAuthService(userRepo, orderRepo, cfg.JWTSecret, cfg.JWTTTL)
	productService := services.NewProductService(productRepo, deps.Cache)
	cartService := services.NewCartService(cartRepo, productRepo)
	feedbackService := services.NewFeedbackService(feedbackRepo)
	orderService, err := services.NewOrderService(services.OrderServiceConfig{
		Orders:         orderRepo,
		Carts:          cartRepo,
		Products:       productRepo,
		Payments:       paymentRepo,
		Gateway:        deps.Gateway,
		Events:         deps.Events,
		Currency:       cfg.Currency,
		Vouchers:       cfg.Vouchers,
		DecrementStock: true,
	})
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.ReplaceAll(cfg.CORSOrigins, " ", ""),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowCredentials: true,
	}))
	app.Use(middleware.RateLimit("global", middleware.GlobalLimit, middleware.LimitWindow, deps.LimiterStorage))

	api := app.Group("/api", middleware.RateLimit("api", middleware.APILimit, middleware.LimitWindow, deps.LimiterStorage))
	api.Get("/health", healthHandler(deps.DB, deps.Cache, deps.Hub))

	authLimit := middleware.RateLimit("auth", middleware.AuthLimit, middleware.LimitWindow, deps.LimiterStorage)
	handlers.NewAuthHandler(authService, cfg.IsProduction()).RegisterRoutes(api, authLimit)
	handlers.NewProductHandler(productService).RegisterRoutes(api, authService)
	handlers.NewCartHandler(cartService).RegisterRoutes(api, authService)
	handlers.NewOrderHandler(orderService, deps.Hub).RegisterRoutes(api, authService)
	handlers.NewFeedbackHandler(feedbackService).RegisterRoutes(api)

	return app, nil
}

type statsReporter interface {
	Stats() cache.Stats
}

func healthHandler(db *gorm.DB, productCache services.Cache, hub *realtime.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		body := fiber.Map{"status": "ok"}
		if reporter, ok := productCache.(statsReporter); ok {
			body["cache"] = reporter.Stats()
		}
		if hub != nil {
			body["liveClients"] = hub.ClientCount()
		}
		return c.JSON(body)
	}
}

// errorHandler renders errors that escape the handlers, such as unknown routes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}
