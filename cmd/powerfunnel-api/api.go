// Package main provides the powerfunnel API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/j7-dev/powerfunnel/pkg/cmd"
	"github.com/j7-dev/powerfunnel/pkg/config"
	"github.com/j7-dev/powerfunnel/pkg/engine"
	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/scheduler"
	"github.com/j7-dev/powerfunnel/pkg/services"
	"github.com/j7-dev/powerfunnel/pkg/web"
)

type API struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	eventBus      eventbus.EventBus
	sendersConfig config.SendersConfig
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	sendersConfig config.SendersConfig,
) *API {
	return &API{
		logger:        logger,
		persistence:   store,
		eventBus:      eventBus,
		sendersConfig: sendersConfig,
	}
}

func (a *API) App() *fiber.App {
	resolver := params.NewResolver(params.NewCallableRegistry())
	delayScheduler := scheduler.NewScheduler(a.persistence, a.logger)
	bridge := engine.NewEventBridge(a.eventBus, delayScheduler, a.logger)
	registry := cmd.NewRegistry(a.sendersConfig, resolver, a.persistence, bridge, a.logger)

	handlers := web.NewAPIHandlers(
		services.NewRule(a.persistence, registry),
		services.NewInstance(a.persistence),
		registry,
		models.NewTriggerPointCatalog(),
		a.eventBus,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("PowerFunnel API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
