// Package web provides the HTTP handlers for managing rules,
// inspecting instances and firing trigger points.
package web

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/registry"
	"github.com/j7-dev/powerfunnel/pkg/services"
)

type APIHandlers struct {
	ruleService     *services.Rule
	instanceService *services.Instance
	registry        *registry.Registry
	triggerPoints   *models.TriggerPointCatalog
	eventBus        eventbus.EventBus
}

func NewAPIHandlers(
	ruleService *services.Rule,
	instanceService *services.Instance,
	reg *registry.Registry,
	triggerPoints *models.TriggerPointCatalog,
	eventBus eventbus.EventBus,
) *APIHandlers {
	return &APIHandlers{
		ruleService:     ruleService,
		instanceService: instanceService,
		registry:        reg,
		triggerPoints:   triggerPoints,
		eventBus:        eventBus,
	}
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules, err := h.ruleService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"rules": rules, "total_count": len(rules)})
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var rule models.WorkflowRule
	if err := json.Unmarshal(c.Body(), &rule); err != nil {
		return badRequest(c, "invalid rule payload: "+err.Error())
	}

	created, err := h.ruleService.Create(c.Context(), &rule)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.ruleService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	var rule models.WorkflowRule
	if err := json.Unmarshal(c.Body(), &rule); err != nil {
		return badRequest(c, "invalid rule payload: "+err.Error())
	}

	updated, err := h.ruleService.Update(c.Context(), c.Params("id"), &rule)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	if err := h.ruleService.Trash(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishRule(c fiber.Ctx) error {
	rule, err := h.ruleService.Publish(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) UnpublishRule(c fiber.Ctx) error {
	rule, err := h.ruleService.Unpublish(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) GetInstances(c fiber.Ctx) error {
	instances, err := h.instanceService.List(c.Context(),
		c.Query("rule_id"), models.InstanceStatus(c.Query("status")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"instances": instances, "total_count": len(instances)})
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	instance, err := h.instanceService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

// GetDefinitions lists the registered node definitions with their
// editor metadata.
func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	definitions := h.registry.All()
	payload := make([]fiber.Map, 0, len(definitions))

	for _, definition := range definitions {
		payload = append(payload, fiber.Map{
			"id":          definition.ID(),
			"name":        definition.Name(),
			"description": definition.Description(),
			"icon":        definition.Icon(),
			"category":    definition.Category(),
			"schema":      definition.Schema(),
		})
	}

	return c.JSON(fiber.Map{"definitions": payload})
}

func (h *APIHandlers) GetTriggerPoints(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"trigger_points": h.triggerPoints.All()})
}

type fireTriggerRequest struct {
	TriggerPoint string         `json:"trigger_point"`
	Context      map[string]any `json:"context"`
}

// FireTrigger publishes a trigger firing on behalf of the host
// application.
func (h *APIHandlers) FireTrigger(c fiber.Ctx) error {
	var request fireTriggerRequest
	if err := json.Unmarshal(c.Body(), &request); err != nil {
		return badRequest(c, "invalid trigger payload: "+err.Error())
	}

	if _, known := h.triggerPoints.Get(request.TriggerPoint); !known {
		return badRequest(c, "unknown trigger point: "+request.TriggerPoint)
	}

	event := events.TriggerFired{
		BaseEvent: events.BaseEvent{
			ID:        h.eventBus.GenerateID(),
			Type:      events.TriggerFiredEvent,
			Timestamp: time.Now().UTC(),
		},
		TriggerPoint: request.TriggerPoint,
		Context:      request.Context,
	}

	if err := h.eventBus.Publish(c.Context(), request.TriggerPoint, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": event.ID})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
