package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence/file"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
	"github.com/j7-dev/powerfunnel/pkg/registry"
	"github.com/j7-dev/powerfunnel/pkg/services"
	"github.com/j7-dev/powerfunnel/pkg/web"
)

type testDefinition struct {
	id string
}

func (d *testDefinition) ID() string                      { return d.id }
func (d *testDefinition) Name() string                    { return d.id }
func (d *testDefinition) Description() string             { return "" }
func (d *testDefinition) Icon() string                    { return "" }
func (d *testDefinition) Category() protocol.NodeCategory { return protocol.CategoryAction }
func (d *testDefinition) Schema() map[string]any          { return nil }

func (d *testDefinition) Execute(_ context.Context, node *models.Node, _ *models.WorkflowInstance) (*models.Result, error) {
	return models.SuccessResult(node.ID, "ok"), nil
}

type stubBus struct {
	mu        sync.Mutex
	published []eventbus.Event
}

func (b *stubBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published = append(b.published, event)

	return nil
}

func (b *stubBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }
func (b *stubBus) Subscribe(context.Context) error                      { return nil }
func (b *stubBus) Close() error                                         { return nil }
func (b *stubBus) GenerateID() string                                   { return uuid.New().String() }

func setupTestApp(t *testing.T) (*fiber.App, *stubBus, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, reg.Register(&testDefinition{id: "send_email"}))
	reg.Freeze()

	bus := &stubBus{}
	handlers := web.NewAPIHandlers(
		services.NewRule(store, reg),
		services.NewInstance(store),
		reg,
		models.NewTriggerPointCatalog(),
		bus,
	)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app, bus, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, respBody
}

func TestRuleLifecycleOverHTTP(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/rules/", map[string]any{
		"name":          "welcome funnel",
		"trigger_point": "pf/trigger/registration_created",
		"nodes": []map[string]any{
			{"id": "n-1", "node_definition_id": "send_email", "priority": 10},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, models.RuleStatusDraft, created.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/rules/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var published models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &published))
	assert.Equal(t, models.RuleStatusPublish, published.Status)

	// editing a published rule conflicts
	resp, _ = doJSON(t, app, http.MethodPatch, "/rules/"+created.ID, map[string]any{
		"name":          "renamed",
		"trigger_point": "pf/trigger/registration_created",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCreateRuleValidationProblem(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/rules/", map[string]any{
		"name":          "welcome funnel",
		"trigger_point": "not_namespaced",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "validation_error", problem["type"])
}

func TestGetUnknownRuleIsNotFoundProblem(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/rules/rule-missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetInstancesFilters(t *testing.T) {
	app, _, store := setupTestApp(t)

	rule := &models.WorkflowRule{
		ID:           "rule-1",
		Name:         "welcome funnel",
		Status:       models.RuleStatusPublish,
		TriggerPoint: "pf/trigger/registration_created",
		Nodes: []*models.Node{
			{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
		},
	}

	first := models.NewInstance(rule, nil)
	second := models.NewInstance(rule, nil)

	ctx := context.Background()
	require.NoError(t, store.Instances().Create(ctx, first))
	require.NoError(t, store.Instances().Create(ctx, second))
	require.NoError(t, store.Instances().AppendResult(ctx, second.ID, 0, models.SuccessResult("n-1", "ok")))
	require.NoError(t, store.Instances().UpdateStatus(ctx, second.ID, models.InstanceStatusCompleted))

	resp, body := doJSON(t, app, http.MethodGet, "/instances/?status=completed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Instances  []*models.WorkflowInstance `json:"instances"`
		TotalCount int                        `json:"total_count"`
	}

	require.NoError(t, json.Unmarshal(body, &listing))
	require.Equal(t, 1, listing.TotalCount)
	assert.Equal(t, second.ID, listing.Instances[0].ID)

	resp, _ = doJSON(t, app, http.MethodGet, "/instances/"+first.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetDefinitions(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/definitions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Definitions []map[string]any `json:"definitions"`
	}

	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing.Definitions, 1)
	assert.Equal(t, "send_email", listing.Definitions[0]["id"])
}

func TestFireTrigger(t *testing.T) {
	app, bus, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/triggers/fire", map[string]any{
		"trigger_point": "pf/trigger/registration_created",
		"context":       map[string]any{"user_id": "u-42"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, bus.published, 1)
	fired, ok := bus.published[0].(events.TriggerFired)
	require.True(t, ok)
	assert.Equal(t, "pf/trigger/registration_created", fired.TriggerPoint)
	assert.Equal(t, "u-42", fired.Context["user_id"])
}

func TestFireUnknownTriggerPoint(t *testing.T) {
	app, bus, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/triggers/fire", map[string]any{
		"trigger_point": "pf/trigger/never_registered",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, bus.published)
}
