package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

const defaultPollInterval = 10 * time.Second

// Poller periodically queries for due schedules and converts each into
// an instance advance event. A schedule is deleted only after its
// event published, so a crash between the two replays the schedule on
// the next pass; delivery is at-least-once and the state machine's
// guards absorb the duplicates.
type Poller struct {
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	logger       *slog.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	started bool
}

func NewPoller(persistence persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Poller {
	return &Poller{
		persistence:  persistence,
		eventBus:     eventBus,
		logger:       logger.With("module", "schedule_poller"),
		pollInterval: defaultPollInterval,
	}
}

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ticker = time.NewTicker(p.pollInterval)
	p.done = make(chan struct{})
	p.started = true

	go p.poll(ctx)

	p.logger.Info("Schedule poller started", "interval", p.pollInterval)
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.ticker.Stop()
	close(p.done)
	p.started = false

	p.logger.Info("Schedule poller stopped")
}

func (p *Poller) poll(ctx context.Context) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-p.ticker.C:
			p.ProcessDue(ctx)
		}
	}
}

// ProcessDue publishes an advance for every schedule whose fire time
// has passed, then removes it.
func (p *Poller) ProcessDue(ctx context.Context) {
	now := time.Now().UTC()

	due, err := p.persistence.Schedules().Due(ctx, now)
	if err != nil {
		p.logger.Error("Failed to query due schedules", "error", err)

		return
	}

	if len(due) == 0 {
		return
	}

	p.logger.Info("Processing due schedules", "count", len(due))

	for _, schedule := range due {
		event := events.InstanceAdvance{
			BaseEvent: events.BaseEvent{
				ID:        p.eventBus.GenerateID(),
				Type:      events.InstanceAdvanceEvent,
				Timestamp: now,
			},
			InstanceID: schedule.InstanceID,
			Reason:     events.AdvanceReasonDelayDue,
		}

		if err := p.eventBus.Publish(ctx, schedule.InstanceID, event); err != nil {
			p.logger.Error("Failed to publish delayed advance",
				"schedule_id", schedule.ID, "instance_id", schedule.InstanceID, "error", err)

			continue
		}

		if err := p.persistence.Schedules().Delete(ctx, schedule.ID); err != nil {
			p.logger.Error("Failed to delete fired schedule",
				"schedule_id", schedule.ID, "error", err)
		}
	}
}
