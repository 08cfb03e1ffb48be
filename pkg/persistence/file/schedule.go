package file

import (
	"context"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

const schedulesDir = "schedules"

// ScheduleRepository stores pending delayed continuations as JSON
// files.
type ScheduleRepository struct {
	root string
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	return writeRecord(r.root, schedulesDir, schedule.ID, schedule)
}

func (r *ScheduleRepository) Due(_ context.Context, now time.Time) ([]*models.Schedule, error) {
	ids, err := listIDs(r.root, schedulesDir)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0)
	for _, id := range ids {
		schedule := &models.Schedule{}
		if err := readRecord(r.root, schedulesDir, id, schedule); err != nil {
			return nil, err
		}

		if !schedule.FireAt.After(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (r *ScheduleRepository) Delete(_ context.Context, id string) error {
	return deleteRecord(r.root, schedulesDir, id)
}
