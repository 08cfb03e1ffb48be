package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

type fakeDefinition struct {
	id     string
	schema map[string]any
}

func (d *fakeDefinition) ID() string                      { return d.id }
func (d *fakeDefinition) Name() string                    { return d.id }
func (d *fakeDefinition) Description() string             { return "" }
func (d *fakeDefinition) Icon() string                    { return "" }
func (d *fakeDefinition) Category() protocol.NodeCategory { return protocol.CategoryAction }
func (d *fakeDefinition) Schema() map[string]any          { return d.schema }

func (d *fakeDefinition) Execute(_ context.Context, node *models.Node, _ *models.WorkflowInstance) (*models.Result, error) {
	return models.SuccessResult(node.ID, "ok"), nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	return NewRegistry(slog.Default())
}

func TestRegistryGet(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(&fakeDefinition{id: "send_email"}))

	definition, err := reg.Get("send_email")
	require.NoError(t, err)
	assert.Equal(t, "send_email", definition.ID())

	_, err = reg.Get("send_fax")
	require.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := newTestRegistry(t)

	first := &fakeDefinition{id: "send_email"}
	second := &fakeDefinition{id: "send_email"}

	require.NoError(t, reg.Register(first))
	require.NoError(t, reg.Register(second))

	definition, err := reg.Get("send_email")
	require.NoError(t, err)
	assert.Same(t, second, definition)
}

func TestRegistryFreeze(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(&fakeDefinition{id: "send_email"}))
	reg.Freeze()

	err := reg.Register(&fakeDefinition{id: "send_line_text"})
	require.ErrorIs(t, err, ErrRegistryFrozen)

	_, err = reg.Get("send_email")
	assert.NoError(t, err)
}

func TestRegistryAllSorted(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(&fakeDefinition{id: "webhook"}))
	require.NoError(t, reg.Register(&fakeDefinition{id: "send_email"}))
	require.NoError(t, reg.Register(&fakeDefinition{id: "wait"}))

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "send_email", all[0].ID())
	assert.Equal(t, "wait", all[1].ID())
	assert.Equal(t, "webhook", all[2].ID())
}

func TestValidateNode(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{"type": "string"},
			"retries":   map[string]any{"type": "integer"},
		},
		"required": []string{"recipient"},
	}

	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(&fakeDefinition{id: "send_email", schema: schema}))

	tests := []struct {
		name    string
		node    *models.Node
		wantErr bool
	}{
		{
			name: "valid literal params",
			node: &models.Node{
				ID:           "node-1",
				DefinitionID: "send_email",
				Params: map[string]models.ParamValue{
					"recipient": models.Literal("user@example.com"),
					"retries":   models.Literal(3),
				},
			},
		},
		{
			name: "wrong literal type",
			node: &models.Node{
				ID:           "node-1",
				DefinitionID: "send_email",
				Params: map[string]models.ParamValue{
					"recipient": models.Literal(42),
				},
			},
			wantErr: true,
		},
		{
			name: "missing required literal",
			node: &models.Node{
				ID:           "node-1",
				DefinitionID: "send_email",
				Params:       map[string]models.ParamValue{},
			},
			wantErr: true,
		},
		{
			name: "context reference satisfies required field",
			node: &models.Node{
				ID:           "node-1",
				DefinitionID: "send_email",
				Params: map[string]models.ParamValue{
					"recipient": models.ContextRef(),
				},
			},
		},
		{
			name: "unknown definition",
			node: &models.Node{
				ID:           "node-1",
				DefinitionID: "send_fax",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateNode(tt.node)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
