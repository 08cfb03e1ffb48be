package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/persistence/file"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
	"github.com/j7-dev/powerfunnel/pkg/registry"
)

// recordingBus captures published events without a broker.
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }
func (b *recordingBus) Subscribe(context.Context) error                      { return nil }
func (b *recordingBus) Close() error                                         { return nil }
func (b *recordingBus) GenerateID() string                                   { return uuid.New().String() }

func (b *recordingBus) byType(eventType events.EventType) []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []eventbus.Event

	for _, event := range b.events {
		if event.GetType() == eventType {
			matched = append(matched, event)
		}
	}

	return matched
}

// syncContinuer advances instances inline, standing in for the event
// round trip the worker performs in production.
type syncContinuer struct {
	stateMachine *StateMachine

	mu        sync.Mutex
	scheduled []scheduledAdvance
}

type scheduledAdvance struct {
	instanceID string
	at         time.Time
}

func (c *syncContinuer) ContinueNow(ctx context.Context, instanceID string) error {
	return c.stateMachine.TryAdvance(ctx, instanceID)
}

func (c *syncContinuer) ContinueLater(_ context.Context, instanceID string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scheduled = append(c.scheduled, scheduledAdvance{instanceID: instanceID, at: at})

	return nil
}

// spyDefinition counts executions and returns a canned result.
type spyDefinition struct {
	id        string
	result    *models.Result
	err       error
	onExecute func(ctx context.Context, instance *models.WorkflowInstance)

	mu    sync.Mutex
	calls int
}

func (d *spyDefinition) ID() string                      { return d.id }
func (d *spyDefinition) Name() string                    { return d.id }
func (d *spyDefinition) Description() string             { return "" }
func (d *spyDefinition) Icon() string                    { return "" }
func (d *spyDefinition) Category() protocol.NodeCategory { return protocol.CategoryAction }
func (d *spyDefinition) Schema() map[string]any          { return nil }

func (d *spyDefinition) Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.onExecute != nil {
		d.onExecute(ctx, instance)
	}

	if d.err != nil {
		return nil, d.err
	}

	if d.result != nil {
		copied := *d.result
		copied.NodeID = node.ID

		return &copied, nil
	}

	return models.SuccessResult(node.ID, "ok"), nil
}

func (d *spyDefinition) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}

type fixture struct {
	persistence  *file.Persistence
	registry     *registry.Registry
	callables    *params.CallableRegistry
	bus          *recordingBus
	continuer    *syncContinuer
	stateMachine *StateMachine
	materializer *Materializer
}

func newFixture(t *testing.T, definitions ...protocol.NodeDefinition) *fixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	logger := slog.Default()
	reg := registry.NewRegistry(logger)

	for _, definition := range definitions {
		require.NoError(t, reg.Register(definition))
	}

	reg.Freeze()

	bus := &recordingBus{}
	continuer := &syncContinuer{}
	executor := NewExecutor(reg, logger)
	stateMachine := NewStateMachine(store, executor, continuer, bus, logger)
	continuer.stateMachine = stateMachine

	callables := params.NewCallableRegistry()
	materializer := NewMaterializer(store, callables, stateMachine, bus, logger)

	return &fixture{
		persistence:  store,
		registry:     reg,
		callables:    callables,
		bus:          bus,
		continuer:    continuer,
		stateMachine: stateMachine,
		materializer: materializer,
	}
}

func publishedRule(id, triggerPoint string, nodes ...*models.Node) *models.WorkflowRule {
	now := time.Now().UTC()

	return &models.WorkflowRule{
		ID:           id,
		Name:         "rule " + id,
		Status:       models.RuleStatusPublish,
		TriggerPoint: triggerPoint,
		Nodes:        nodes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (f *fixture) saveRule(t *testing.T, rule *models.WorkflowRule) {
	t.Helper()
	require.NoError(t, f.persistence.Rules().Save(context.Background(), rule))
}

func (f *fixture) onlyInstance(t *testing.T) *models.WorkflowInstance {
	t.Helper()

	instances, err := f.persistence.Instances().List(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 1)

	return instances[0]
}

func TestTriggerRunsRuleToCompletion(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	f.saveRule(t, publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
		&models.Node{ID: "n-2", DefinitionID: "send_email", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created",
		map[string]any{"recipient": "a@example.com"})
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	require.Len(t, instance.Results, 2)
	assert.Equal(t, models.StatusSuccess, instance.Results[0].Code)
	assert.Equal(t, models.StatusSuccess, instance.Results[1].Code)
	assert.Equal(t, 2, email.callCount())

	assert.Len(t, f.bus.byType(events.InstanceCreatedEvent), 1)
	assert.Len(t, f.bus.byType(events.InstanceStatusChangedEvent), 1)
}

func TestDelayNodeDefersContinuation(t *testing.T) {
	fireAt := time.Now().Add(time.Hour).UTC()

	email := &spyDefinition{id: "send_email"}
	wait := &spyDefinition{
		id:     "wait",
		result: &models.Result{Code: models.StatusSuccess, Message: "waiting", Deferred: true},
	}

	f := newFixture(t, email, wait)

	wait.onExecute = func(ctx context.Context, instance *models.WorkflowInstance) {
		require.NoError(t, f.continuer.ContinueLater(ctx, instance.ID, fireAt))
	}

	f.saveRule(t, publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
		&models.Node{ID: "n-2", DefinitionID: "wait", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	assert.Equal(t, models.InstanceStatusRunning, instance.Status)
	require.Len(t, instance.Results, 2)
	assert.Equal(t, "waiting", instance.Results[1].Message)

	require.Len(t, f.continuer.scheduled, 1)
	assert.Equal(t, instance.ID, f.continuer.scheduled[0].instanceID)
	assert.Equal(t, fireAt, f.continuer.scheduled[0].at)

	// the delayed continuation firing
	require.NoError(t, f.stateMachine.TryAdvance(context.Background(), instance.ID))

	instance = f.onlyInstance(t)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Len(t, instance.Results, 2)
}

func TestFalseMatchSkipsWithoutInvokingBehavior(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	f.saveRule(t, publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{
			ID:           "n-1",
			DefinitionID: "send_email",
			Priority:     models.DefaultPriority,
			Match:        models.MatchCondition{Kind: models.MatchAlwaysFalse},
		},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	require.Len(t, instance.Results, 1)
	assert.Equal(t, models.StatusSkipped, instance.Results[0].Code)
	assert.Equal(t, 0, email.callCount())
}

func TestUnregisteredDefinitionFailsInstance(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	f.saveRule(t, publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_fax", Priority: models.DefaultPriority},
		&models.Node{ID: "n-2", DefinitionID: "send_email", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	assert.Equal(t, models.InstanceStatusFailed, instance.Status)
	require.Len(t, instance.Results, 1)
	assert.Equal(t, models.StatusFailed, instance.Results[0].Code)
	assert.Contains(t, instance.Results[0].Message, "send_fax")
	assert.Equal(t, 0, email.callCount())
}

func TestTerminalInstanceIgnoresAdvance(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	f.saveRule(t, publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	require.Equal(t, models.InstanceStatusCompleted, instance.Status)

	// redundant deliveries after completion
	require.NoError(t, f.stateMachine.TryAdvance(context.Background(), instance.ID))
	require.NoError(t, f.stateMachine.TryAdvance(context.Background(), instance.ID))

	instance = f.onlyInstance(t)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Len(t, instance.Results, 1)
	assert.Equal(t, 1, email.callCount())
}

func TestResultsNeverOutgrowNodes(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	f.saveRule(t, publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
		&models.Node{ID: "n-2", DefinitionID: "send_email", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instance := f.onlyInstance(t)

	for range 3 {
		require.NoError(t, f.stateMachine.TryAdvance(context.Background(), instance.ID))

		instance = f.onlyInstance(t)
		assert.LessOrEqual(t, len(instance.Results), len(instance.Nodes))
	}
}

func TestSiblingRulesMaterializeIndependently(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	f.saveRule(t, publishedRule("rule-ok", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
	))
	f.saveRule(t, publishedRule("rule-broken", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_fax", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instances, err := f.persistence.Instances().List(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)

	statuses := map[string]models.InstanceStatus{}
	for _, instance := range instances {
		statuses[instance.RuleID] = instance.Status
	}

	assert.Equal(t, models.InstanceStatusCompleted, statuses["rule-ok"])
	assert.Equal(t, models.InstanceStatusFailed, statuses["rule-broken"])
}

func TestDraftRulesNeverMaterialize(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	rule := publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
	)
	rule.Status = models.RuleStatusDraft
	f.saveRule(t, rule)

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instances, err := f.persistence.Instances().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestContextCallableSeedsInstanceContext(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	evaluations := 0
	f.callables.Register("load_member", func(_ context.Context, args map[string]any) (any, error) {
		evaluations++

		return map[string]any{
			"plan":      args["plan"],
			"recipient": "from-callable@example.com",
		}, nil
	})

	rule := publishedRule("rule-1", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
	)
	rule.ContextCallable = &models.CallableSpec{
		Name: "load_member",
		Args: map[string]any{"plan": "premium"},
	}
	f.saveRule(t, rule)

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created",
		map[string]any{"recipient": "from-trigger@example.com"})
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	assert.Equal(t, "premium", instance.Context["plan"])
	// trigger context wins on collision
	assert.Equal(t, "from-trigger@example.com", instance.Context["recipient"])
	assert.Equal(t, 1, evaluations)

	// re-evaluated fresh on the next firing
	err = f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, evaluations)
}

func TestBrokenContextCallableSkipsOnlyItsRule(t *testing.T) {
	email := &spyDefinition{id: "send_email"}
	f := newFixture(t, email)

	rule := publishedRule("rule-broken", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
	)
	rule.ContextCallable = &models.CallableSpec{Name: "never_registered"}
	f.saveRule(t, rule)

	f.saveRule(t, publishedRule("rule-ok", "pf/trigger/registration_created",
		&models.Node{ID: "n-1", DefinitionID: "send_email", Priority: models.DefaultPriority},
	))

	err := f.materializer.OnTrigger(context.Background(), "pf/trigger/registration_created", nil)
	require.NoError(t, err)

	instance := f.onlyInstance(t)
	assert.Equal(t, "rule-ok", instance.RuleID)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
}
