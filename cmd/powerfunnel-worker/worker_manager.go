package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/j7-dev/powerfunnel/pkg/cmd"
	"github.com/j7-dev/powerfunnel/pkg/config"
	"github.com/j7-dev/powerfunnel/pkg/engine"
	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/scheduler"
)

// WorkerManager wires the engine together and consumes trigger and
// advance events from the bus. One worker process hosts the
// materializer, the state machine and the schedule poller.
type WorkerManager struct {
	id           string
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	stateMachine *engine.StateMachine
	materializer *engine.Materializer
	poller       *scheduler.Poller
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	sendersConfig config.SendersConfig,
	logger *slog.Logger,
) *WorkerManager {
	logger = logger.With("module", "powerfunnel-worker", "worker_id", id)

	callables := params.NewCallableRegistry()
	resolver := params.NewResolver(callables)

	delayScheduler := scheduler.NewScheduler(store, logger)
	bridge := engine.NewEventBridge(eventBus, delayScheduler, logger)

	registry := cmd.NewRegistry(sendersConfig, resolver, store, bridge, logger)

	executor := engine.NewExecutor(registry, logger)
	stateMachine := engine.NewStateMachine(store, executor, bridge, eventBus, logger)
	materializer := engine.NewMaterializer(store, callables, stateMachine, eventBus, logger)
	poller := scheduler.NewPoller(store, eventBus, logger)

	return &WorkerManager{
		id:           id,
		logger:       logger,
		persistence:  store,
		eventBus:     eventBus,
		stateMachine: stateMachine,
		materializer: materializer,
		poller:       poller,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.eventBus.Handle(events.TriggerFiredEvent, w.handleTriggerFired); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.InstanceAdvanceEvent, w.handleInstanceAdvance); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.poller.Start(ctx)
	defer w.poller.Stop()

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker")

	return nil
}

func (w *WorkerManager) handleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerFired")

		return nil
	}

	logger := w.logger.With("trigger_point", fired.TriggerPoint, "event_id", fired.ID)
	logger.InfoContext(ctx, "Processing trigger firing")

	if err := w.materializer.OnTrigger(ctx, fired.TriggerPoint, fired.Context); err != nil {
		logger.ErrorContext(ctx, "Trigger processing failed", "error", err)

		return err
	}

	return nil
}

func (w *WorkerManager) handleInstanceAdvance(ctx context.Context, event any) error {
	advance, ok := event.(*events.InstanceAdvance)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for InstanceAdvance")

		return nil
	}

	logger := w.logger.With("instance_id", advance.InstanceID, "reason", advance.Reason)
	logger.DebugContext(ctx, "Processing instance advance")

	if err := w.stateMachine.TryAdvance(ctx, advance.InstanceID); err != nil {
		logger.ErrorContext(ctx, "Instance advance failed", "error", err)

		return err
	}

	return nil
}
