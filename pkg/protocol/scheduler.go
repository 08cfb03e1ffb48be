package protocol

import (
	"context"
	"time"
)

// DelayScheduler registers a future continuation for an instance. The
// returned schedule id identifies the registration. Delivery is
// at-least-once with no ordering guarantee relative to other
// schedules.
type DelayScheduler interface {
	Schedule(ctx context.Context, at time.Time, instanceID string) (string, error)
}

// Continuer is the continuation scheduler bridge the state machine and
// delay-type node behaviors use to request the next advance of an
// instance: immediately, or no earlier than a future timestamp. Both
// paths may deliver redundantly; callers rely on the state machine's
// idempotent guard and the compare-and-set result append to absorb
// duplicates.
type Continuer interface {
	ContinueNow(ctx context.Context, instanceID string) error
	ContinueLater(ctx context.Context, instanceID string, at time.Time) error
}
