package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

const maxTxRetries = 5

// InstanceRepository stores workflow instances. Result appends and
// status transitions run inside WATCH transactions so concurrent
// workers cannot double-apply a step.
type InstanceRepository struct {
	client *goredis.Client
}

func (r *InstanceRepository) Create(ctx context.Context, instance *models.WorkflowInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, instanceKeyPrefix+instance.ID, data, 0)
	pipe.SAdd(ctx, instancesSetKey, instance.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create instance %s: %w", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	return getInstance(ctx, r.client, id)
}

func (r *InstanceRepository) List(ctx context.Context) ([]*models.WorkflowInstance, error) {
	ids, err := r.client.SMembers(ctx, instancesSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(ids))

	for _, id := range ids {
		instance, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, persistence.ErrInstanceNotFound) {
				continue
			}

			return nil, err
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

// AppendResult records the result for a single step. The result slot is
// append-only: a result already present at the index reports
// ErrResultExists and leaves the stored record untouched.
func (r *InstanceRepository) AppendResult(ctx context.Context, id string, index int, result *models.Result) error {
	key := instanceKeyPrefix + id

	txn := func(tx *goredis.Tx) error {
		instance, err := getInstance(ctx, tx, id)
		if err != nil {
			return err
		}

		switch {
		case index < len(instance.Results):
			return persistence.NewInstanceError("append_result", id, persistence.ErrResultExists)
		case index > len(instance.Results):
			return persistence.NewInstanceError("append_result", id, persistence.ErrResultIndexGap)
		case index >= len(instance.Nodes):
			return persistence.NewInstanceError("append_result", id,
				fmt.Errorf("result index %d out of range for %d nodes", index, len(instance.Nodes)))
		}

		instance.Results = append(instance.Results, result)
		instance.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(instance)
		if err != nil {
			return fmt.Errorf("failed to marshal instance %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})

		return err
	}

	return r.watchRetry(ctx, key, txn)
}

// UpdateStatus moves the instance to a new status. Terminal statuses
// are sticky and further transitions report ErrTerminalStatus.
func (r *InstanceRepository) UpdateStatus(ctx context.Context, id string, status models.InstanceStatus) error {
	key := instanceKeyPrefix + id

	txn := func(tx *goredis.Tx) error {
		instance, err := getInstance(ctx, tx, id)
		if err != nil {
			return err
		}

		if instance.Status == status {
			return nil
		}

		if instance.Status.IsTerminal() {
			return persistence.NewInstanceError("update_status", id, persistence.ErrTerminalStatus)
		}

		instance.Status = status
		instance.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(instance)
		if err != nil {
			return fmt.Errorf("failed to marshal instance %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})

		return err
	}

	return r.watchRetry(ctx, key, txn)
}

func (r *InstanceRepository) watchRetry(ctx context.Context, key string, txn func(tx *goredis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("instance update on %s aborted after %d conflicting writes", key, maxTxRetries)
}

func getInstance(ctx context.Context, c goredis.Cmdable, id string) (*models.WorkflowInstance, error) {
	data, err := c.Get(ctx, instanceKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrInstanceNotFound
		}

		return nil, fmt.Errorf("failed to get instance %s: %w", id, err)
	}

	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance %s: %w", id, err)
	}

	return &instance, nil
}
