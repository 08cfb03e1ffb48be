// Package redis provides a Redis record store implementation with
// optimistic (WATCH-based) update semantics for instance writes.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

const (
	ruleKeyPrefix     = "pf:rule:"
	rulesSetKey       = "pf:rules"
	instanceKeyPrefix = "pf:instance:"
	instancesSetKey   = "pf:instances"
	scheduleKeyPrefix = "pf:schedule:"
	schedulesZSetKey  = "pf:schedules"
	templateKeyPrefix = "pf:template:"
)

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client    *goredis.Client
	rules     *RuleRepository
	instances *InstanceRepository
	schedules *ScheduleRepository
	templates *TemplateRepository
}

// NewPersistence connects to Redis using a redis:// URL.
func NewPersistence(redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	return &Persistence{
		client:    client,
		rules:     &RuleRepository{client: client},
		instances: &InstanceRepository{client: client},
		schedules: &ScheduleRepository{client: client},
		templates: &TemplateRepository{client: client},
	}, nil
}

func (rp *Persistence) Rules() persistence.RuleRepository {
	return rp.rules
}

func (rp *Persistence) Instances() persistence.InstanceRepository {
	return rp.instances
}

func (rp *Persistence) Schedules() persistence.ScheduleRepository {
	return rp.schedules
}

func (rp *Persistence) Templates() persistence.MessageTemplateRepository {
	return rp.templates
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}
