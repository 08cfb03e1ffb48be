package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

const instancesDir = "instances"

// InstanceRepository stores workflow instances as JSON files. All
// mutations go through a process-wide mutex so the conditional
// append-at-index check and the following write are atomic; the engine
// model assumes single-writer progression per instance, the lock makes
// that hold for concurrent continuation deliveries inside one process.
type InstanceRepository struct {
	root string
	mu   sync.Mutex
}

func NewInstanceRepository(root string) *InstanceRepository {
	return &InstanceRepository{root: root}
}

func (r *InstanceRepository) Create(_ context.Context, instance *models.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeRecord(r.root, instancesDir, instance.ID, instance)
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id)
}

func (r *InstanceRepository) load(id string) (*models.WorkflowInstance, error) {
	instance := &models.WorkflowInstance{}
	if err := readRecord(r.root, instancesDir, id, instance); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, err
	}

	return instance, nil
}

func (r *InstanceRepository) List(_ context.Context) ([]*models.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := listIDs(r.root, instancesDir)
	if err != nil {
		return nil, err
	}

	instances := make([]*models.WorkflowInstance, 0, len(ids))
	for _, id := range ids {
		instance, err := r.load(id)
		if err != nil {
			return nil, err
		}

		instances = append(instances, instance)
	}

	sort.Slice(instances, func(i, j int) bool { return instances[i].CreatedAt.Before(instances[j].CreatedAt) })

	return instances, nil
}

func (r *InstanceRepository) AppendResult(_ context.Context, instanceID string, index int, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, err := r.load(instanceID)
	if err != nil {
		return err
	}

	if index < len(instance.Results) {
		return persistence.NewInstanceError("AppendResult", instanceID, persistence.ErrResultExists)
	}

	if index > len(instance.Results) {
		return persistence.NewInstanceError("AppendResult", instanceID, persistence.ErrResultIndexGap)
	}

	if index >= len(instance.Nodes) {
		return persistence.NewInstanceError("AppendResult", instanceID,
			fmt.Errorf("index %d out of range for %d nodes", index, len(instance.Nodes)))
	}

	instance.Results = append(instance.Results, result)
	instance.UpdatedAt = time.Now().UTC()

	return writeRecord(r.root, instancesDir, instanceID, instance)
}

func (r *InstanceRepository) UpdateStatus(_ context.Context, instanceID string, status models.InstanceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, err := r.load(instanceID)
	if err != nil {
		return err
	}

	if instance.Status == status {
		return nil
	}

	if instance.Status.IsTerminal() {
		return persistence.NewInstanceError("UpdateStatus", instanceID, persistence.ErrTerminalStatus)
	}

	instance.Status = status
	instance.UpdatedAt = time.Now().UTC()

	return writeRecord(r.root, instancesDir, instanceID, instance)
}
