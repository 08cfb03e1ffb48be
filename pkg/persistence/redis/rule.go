package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

// RuleRepository stores workflow rules as JSON strings with a set index.
type RuleRepository struct {
	client *goredis.Client
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.WorkflowRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, ruleKeyPrefix+rule.ID, data, 0)
	pipe.SAdd(ctx, rulesSetKey, rule.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}

	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	data, err := r.client.Get(ctx, ruleKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}

	var rule models.WorkflowRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule %s: %w", id, err)
	}

	return &rule, nil
}

func (r *RuleRepository) List(ctx context.Context) ([]*models.WorkflowRule, error) {
	ids, err := r.client.SMembers(ctx, rulesSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]*models.WorkflowRule, 0, len(ids))

	for _, id := range ids {
		rule, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, persistence.ErrRuleNotFound) {
				continue
			}

			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func (r *RuleRepository) PublishedByTriggerPoint(ctx context.Context, triggerPoint string) ([]*models.WorkflowRule, error) {
	rules, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowRule, 0)

	for _, rule := range rules {
		if rule.Status == models.RuleStatusPublish && rule.TriggerPoint == triggerPoint {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, ruleKeyPrefix+id)
	pipe.SRem(ctx, rulesSetKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}

	return nil
}
