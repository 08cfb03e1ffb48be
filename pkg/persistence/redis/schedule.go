package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

// ScheduleRepository stores pending continuations in a sorted set keyed
// by fire time, so Due is a single range query.
type ScheduleRepository struct {
	client *goredis.Client
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, scheduleKeyPrefix+schedule.ID, data, 0)
	pipe.ZAdd(ctx, schedulesZSetKey, goredis.Z{
		Score:  float64(schedule.FireAt.UnixMilli()),
		Member: schedule.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ID, err)
	}

	return nil
}

func (r *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	ids, err := r.client.ZRangeByScore(ctx, schedulesZSetKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}

	due := make([]*models.Schedule, 0, len(ids))

	for _, id := range ids {
		data, err := r.client.Get(ctx, scheduleKeyPrefix+id).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}

			return nil, fmt.Errorf("failed to get schedule %s: %w", id, err)
		}

		var schedule models.Schedule
		if err := json.Unmarshal(data, &schedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule %s: %w", id, err)
		}

		due = append(due, &schedule)
	}

	return due, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, scheduleKeyPrefix+id)
	pipe.ZRem(ctx, schedulesZSetKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}

	return nil
}
