package services

import (
	"context"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

// Instance exposes workflow instances for inspection. Instances are
// engine-owned; the API surface reads them but every mutation happens
// through the state machine.
type Instance struct {
	persistence persistence.Persistence
}

func NewInstance(store persistence.Persistence) *Instance {
	return &Instance{persistence: store}
}

func (s *Instance) Get(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	return s.persistence.Instances().GetByID(ctx, id)
}

// List returns instances, optionally filtered by rule id or status.
func (s *Instance) List(ctx context.Context, ruleID string, status models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	instances, err := s.persistence.Instances().List(ctx)
	if err != nil {
		return nil, err
	}

	if ruleID == "" && status == "" {
		return instances, nil
	}

	filtered := make([]*models.WorkflowInstance, 0, len(instances))

	for _, instance := range instances {
		if ruleID != "" && instance.RuleID != ruleID {
			continue
		}

		if status != "" && instance.Status != status {
			continue
		}

		filtered = append(filtered, instance)
	}

	return filtered, nil
}
