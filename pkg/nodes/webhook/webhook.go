// Package webhook provides the webhook node definition for calling
// external HTTP endpoints from a workflow.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const DefinitionID = "webhook"

const requestTimeout = 30 * time.Second

// Definition posts a JSON payload to a configured URL. A non-2xx
// response is a domain-level failure, reported through the result
// rather than an error.
type Definition struct {
	resolver *params.Resolver
	client   *resty.Client
	logger   *slog.Logger
}

func NewDefinition(resolver *params.Resolver, logger *slog.Logger) *Definition {
	client := resty.New().
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")

	return &Definition{
		resolver: resolver,
		client:   client,
		logger:   logger.With("module", "node_webhook"),
	}
}

func (d *Definition) ID() string          { return DefinitionID }
func (d *Definition) Name() string        { return "Webhook" }
func (d *Definition) Description() string { return "Calls an external HTTP endpoint" }
func (d *Definition) Icon() string        { return "globe" }

func (d *Definition) Category() protocol.NodeCategory { return protocol.CategoryAction }

func (d *Definition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint to call",
			},
			"method": map[string]any{
				"type":        "string",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"description": "HTTP method, POST when omitted",
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "JSON body sent with the request",
			},
			"include_context": map[string]any{
				"type":        "boolean",
				"description": "Merge the instance context into the payload",
			},
		},
		"required": []string{"url"},
	}
}

func (d *Definition) Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error) {
	url, err := d.resolver.ResolveString(ctx, node, instance, "url")
	if err != nil {
		return nil, err
	}

	if url == "" {
		return models.FailedResult(node.ID, "no url resolved for webhook node"), nil
	}

	method, err := d.resolver.ResolveString(ctx, node, instance, "method")
	if err != nil {
		return nil, err
	}

	if method == "" {
		method = http.MethodPost
	}

	payload, err := d.buildPayload(ctx, node, instance)
	if err != nil {
		return nil, err
	}

	request := d.client.R().SetContext(ctx)
	if len(payload) > 0 {
		request.SetBody(payload)
	}

	response, err := request.Execute(strings.ToUpper(method), url)
	if err != nil {
		return nil, fmt.Errorf("webhook request to %s failed: %w", url, err)
	}

	d.logger.Info("Webhook called",
		"instance_id", instance.ID, "url", url, "status", response.StatusCode())

	if response.IsError() {
		return models.FailedResult(node.ID,
			fmt.Sprintf("webhook %s returned status %d", url, response.StatusCode())), nil
	}

	result := models.SuccessResult(node.ID, fmt.Sprintf("webhook %s returned status %d", url, response.StatusCode()))
	result.Data = map[string]any{"status": response.StatusCode()}

	return result, nil
}

func (d *Definition) buildPayload(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (map[string]any, error) {
	payload := map[string]any{}

	value, err := d.resolver.Resolve(ctx, node, instance, "payload")
	if err != nil {
		return nil, err
	}

	if mapping, ok := value.(map[string]any); ok {
		for key, item := range mapping {
			payload[key] = item
		}
	}

	include, err := d.resolver.Resolve(ctx, node, instance, "include_context")
	if err != nil {
		return nil, err
	}

	if toBool(include) {
		for key, item := range instance.Context {
			if _, taken := payload[key]; !taken {
				payload[key] = item
			}
		}
	}

	return payload, nil
}

// toBool coerces the saved flag value. Authors sometimes store "true"
// as a string; anything unparseable counts as false.
func toBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))

		return err == nil && parsed
	default:
		return false
	}
}
