package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/persistence/redis"
)

var redisContainer *tcredis.RedisContainer

func setupTestStore(t *testing.T) (*redis.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if redisContainer == nil || !redisContainer.IsRunning() {
		var err error

		redisContainer, err = tcredis.Run(ctx, "redis:7-alpine")
		require.NoError(t, err)
	}

	redisURL, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(redisURL)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	require.NoError(t, client.FlushDB(ctx).Err())
	require.NoError(t, client.Close())

	store, err := redis.NewPersistence(redisURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close(ctx))
		cancel()
	})

	return store, ctx
}

func testRule(id string, status models.RuleStatus, triggerPoint string) *models.WorkflowRule {
	return &models.WorkflowRule{
		ID:           id,
		Name:         "rule " + id,
		Status:       status,
		TriggerPoint: triggerPoint,
		Nodes: []*models.Node{
			{ID: "n1", DefinitionID: "email", Priority: models.DefaultPriority},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestRuleRepository_PublishedByTriggerPoint(t *testing.T) {
	store, ctx := setupTestStore(t)

	require.NoError(t, store.Rules().Save(ctx, testRule("r1", models.RuleStatusPublish, models.TriggerRegistrationCreated)))
	require.NoError(t, store.Rules().Save(ctx, testRule("r2", models.RuleStatusDraft, models.TriggerRegistrationCreated)))
	require.NoError(t, store.Rules().Save(ctx, testRule("r3", models.RuleStatusPublish, "pf/trigger/order_created")))

	matched, err := store.Rules().PublishedByTriggerPoint(ctx, models.TriggerRegistrationCreated)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "r1", matched[0].ID)

	_, err = store.Rules().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrRuleNotFound)
}

func TestInstanceRepository_AppendResultIsConditional(t *testing.T) {
	store, ctx := setupTestStore(t)

	rule := testRule("r1", models.RuleStatusPublish, models.TriggerRegistrationCreated)
	rule.Nodes = append(rule.Nodes, &models.Node{ID: "n2", DefinitionID: "wait"})
	instance := models.NewInstance(rule, map[string]any{"recipient": "a@example.com"})
	require.NoError(t, store.Instances().Create(ctx, instance))

	require.NoError(t, store.Instances().AppendResult(ctx, instance.ID, 0, models.SuccessResult("n1", "sent")))

	// Redundant delivery for the same index must be rejected.
	err := store.Instances().AppendResult(ctx, instance.ID, 0, models.SuccessResult("n1", "sent"))
	assert.True(t, persistence.IsResultExists(err))

	// An index that would leave a hole must be rejected too.
	err = store.Instances().AppendResult(ctx, instance.ID, 3, models.SuccessResult("n2", "sent"))
	assert.ErrorIs(t, err, persistence.ErrResultIndexGap)

	loaded, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Results, 1)
	assert.Equal(t, "n1", loaded.Results[0].NodeID)
}

func TestInstanceRepository_ConcurrentAppendsKeepOneResultPerIndex(t *testing.T) {
	store, ctx := setupTestStore(t)

	rule := testRule("r1", models.RuleStatusPublish, models.TriggerRegistrationCreated)
	instance := models.NewInstance(rule, nil)
	require.NoError(t, store.Instances().Create(ctx, instance))

	const writers = 8

	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		go func() {
			errs <- store.Instances().AppendResult(ctx, instance.ID, 0, models.SuccessResult("n1", "sent"))
		}()
	}

	succeeded := 0

	for i := 0; i < writers; i++ {
		err := <-errs
		if err == nil {
			succeeded++

			continue
		}

		assert.True(t, persistence.IsResultExists(err), "unexpected error: %v", err)
	}

	assert.Equal(t, 1, succeeded)

	loaded, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Results, 1)
}

func TestInstanceRepository_TerminalStatusIsSticky(t *testing.T) {
	store, ctx := setupTestStore(t)

	rule := testRule("r1", models.RuleStatusPublish, models.TriggerRegistrationCreated)
	instance := models.NewInstance(rule, nil)
	require.NoError(t, store.Instances().Create(ctx, instance))

	require.NoError(t, store.Instances().UpdateStatus(ctx, instance.ID, models.InstanceStatusFailed))

	err := store.Instances().UpdateStatus(ctx, instance.ID, models.InstanceStatusRunning)
	assert.ErrorIs(t, err, persistence.ErrTerminalStatus)
}

func TestInstanceRepository_RoundTripKeepsEveryField(t *testing.T) {
	store, ctx := setupTestStore(t)

	rule := testRule("r1", models.RuleStatusPublish, models.TriggerRegistrationCreated)
	rule.Nodes[0].Params = map[string]models.ParamValue{
		"recipient": models.ContextRef(),
		"subject":   models.Literal("hello"),
	}
	rule.Nodes[0].Match = models.MatchCondition{Kind: models.MatchContextKeyExists, Args: []any{"recipient"}}

	instance := models.NewInstance(rule, map[string]any{"recipient": "a@example.com"})
	require.NoError(t, store.Instances().Create(ctx, instance))

	loaded, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)

	assert.Equal(t, instance.ID, loaded.ID)
	assert.Equal(t, instance.RuleID, loaded.RuleID)
	assert.Equal(t, models.InstanceStatusRunning, loaded.Status)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.ParamContextRef, loaded.Nodes[0].Params["recipient"].Kind())
	assert.Equal(t, models.MatchContextKeyExists, loaded.Nodes[0].Match.Kind)
	assert.Equal(t, "a@example.com", loaded.Context["recipient"])
}

func TestScheduleRepository_Due(t *testing.T) {
	store, ctx := setupTestStore(t)
	now := time.Now().UTC()

	past := models.NewSchedule("wfi-1", now.Add(-time.Minute))
	future := models.NewSchedule("wfi-2", now.Add(time.Hour))
	require.NoError(t, store.Schedules().Save(ctx, past))
	require.NoError(t, store.Schedules().Save(ctx, future))

	due, err := store.Schedules().Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "wfi-1", due[0].InstanceID)

	require.NoError(t, store.Schedules().Delete(ctx, past.ID))

	due, err = store.Schedules().Due(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}
