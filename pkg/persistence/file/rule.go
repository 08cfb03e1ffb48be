package file

import (
	"context"
	"os"
	"sort"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

const rulesDir = "rules"

// RuleRepository stores workflow rules as JSON files.
type RuleRepository struct {
	root string
}

func (r *RuleRepository) Save(_ context.Context, rule *models.WorkflowRule) error {
	return writeRecord(r.root, rulesDir, rule.ID, rule)
}

func (r *RuleRepository) GetByID(_ context.Context, id string) (*models.WorkflowRule, error) {
	rule := &models.WorkflowRule{}
	if err := readRecord(r.root, rulesDir, id, rule); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrRuleNotFound
		}

		return nil, err
	}

	return rule, nil
}

func (r *RuleRepository) List(ctx context.Context) ([]*models.WorkflowRule, error) {
	ids, err := listIDs(r.root, rulesDir)
	if err != nil {
		return nil, err
	}

	rules := make([]*models.WorkflowRule, 0, len(ids))
	for _, id := range ids {
		rule, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })

	return rules, nil
}

func (r *RuleRepository) PublishedByTriggerPoint(ctx context.Context, triggerPoint string) ([]*models.WorkflowRule, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowRule, 0)
	for _, rule := range all {
		if rule.Status == models.RuleStatusPublish && rule.TriggerPoint == triggerPoint {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

func (r *RuleRepository) Delete(_ context.Context, id string) error {
	return deleteRecord(r.root, rulesDir, id)
}
