package models

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is a pending delayed continuation for an instance. The
// delay scheduler persists one per ContinueLater call and fires an
// advance for the instance no earlier than FireAt. Delivery is
// at-least-once; the state machine absorbs duplicates.
type Schedule struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instance_id"`
	FireAt     time.Time `json:"fire_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSchedule builds a schedule for an instance continuation.
func NewSchedule(instanceID string, fireAt time.Time) *Schedule {
	return &Schedule{
		ID:         "sch-" + uuid.New().String()[:8],
		InstanceID: instanceID,
		FireAt:     fireAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
}
