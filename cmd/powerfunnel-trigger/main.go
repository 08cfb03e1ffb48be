package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/j7-dev/powerfunnel/pkg/cmd"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "powerfunnel-trigger",
		EnableShellCompletion: true,
		Usage:                 "Fire trigger points, once or on a cron schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "trigger-point",
				Aliases:  []string{"t"},
				Usage:    "Trigger point to fire (e.g. pf/trigger/registration_created)",
				Required: true,
				Sources:  cli.EnvVars("TRIGGER_POINT"),
			},
			&cli.StringFlag{
				Name:    "context",
				Aliases: []string{"c"},
				Usage:   "JSON object captured as the trigger context",
				Value:   "{}",
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression; fires the trigger point repeatedly instead of once",
				Value:   "",
				Sources: cli.EnvVars("TRIGGER_CRON"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("powerfunnel-trigger")

	triggerPoint := command.String("trigger-point")

	var triggerContext map[string]any
	if err := json.Unmarshal([]byte(command.String("context")), &triggerContext); err != nil {
		return fmt.Errorf("context must be a JSON object: %w", err)
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	fire := func() error {
		event := events.TriggerFired{
			BaseEvent: events.BaseEvent{
				ID:        eventBus.GenerateID(),
				Type:      events.TriggerFiredEvent,
				Timestamp: time.Now().UTC(),
			},
			TriggerPoint: triggerPoint,
			Context:      triggerContext,
		}

		if err := eventBus.Publish(ctx, triggerPoint, event); err != nil {
			return fmt.Errorf("failed to publish trigger firing: %w", err)
		}

		logger.InfoContext(ctx, "Trigger fired", "trigger_point", triggerPoint)

		return nil
	}

	expression := command.String("cron")
	if expression == "" {
		return fire()
	}

	return runCron(ctx, logger, expression, fire)
}

func runCron(ctx context.Context, logger *slog.Logger, expression string, fire func() error) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(expression, func() {
		if err := fire(); err != nil {
			logger.ErrorContext(ctx, "Scheduled trigger firing failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	logger.InfoContext(ctx, "Cron trigger running", "cron", expression)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	return nil
}
