package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	rules := app.Group("/rules")
	rules.Get("/", h.GetRules)
	rules.Post("/", h.CreateRule)
	rules.Get("/:id", h.GetRule)
	rules.Patch("/:id", h.UpdateRule)
	rules.Delete("/:id", h.DeleteRule)
	rules.Post("/:id/publish", h.PublishRule)
	rules.Post("/:id/unpublish", h.UnpublishRule)

	instances := app.Group("/instances")
	instances.Get("/", h.GetInstances)
	instances.Get("/:id", h.GetInstance)

	app.Get("/definitions", h.GetDefinitions)
	app.Get("/trigger-points", h.GetTriggerPoints)
	app.Post("/triggers/fire", h.FireTrigger)

	app.Get("/health", h.HealthCheck)
}
