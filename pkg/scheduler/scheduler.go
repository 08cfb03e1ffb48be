// Package scheduler provides the delayed-continuation capability:
// registering future advances and polling them back into the event
// stream when due.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// Scheduler persists delayed continuations. Durability over precision:
// a schedule fires no earlier than its timestamp, and survives process
// restarts because it lives in the record store, not a timer.
type Scheduler struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

var _ protocol.DelayScheduler = (*Scheduler)(nil)

func NewScheduler(persistence persistence.Persistence, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence: persistence,
		logger:      logger.With("module", "scheduler"),
	}
}

// Schedule registers a continuation for the instance no earlier than at.
func (s *Scheduler) Schedule(ctx context.Context, at time.Time, instanceID string) (string, error) {
	schedule := models.NewSchedule(instanceID, at)

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return "", fmt.Errorf("failed to save schedule for %s: %w", instanceID, err)
	}

	s.logger.Info("Schedule registered",
		"schedule_id", schedule.ID, "instance_id", instanceID, "fire_at", at)

	return schedule.ID, nil
}
