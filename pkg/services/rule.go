package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/registry"
)

// Rule manages the workflow rule lifecycle: draft editing, publishing
// and trashing. Published rules are frozen; every edit goes through a
// draft transition first so running instances never observe a
// half-edited rule.
type Rule struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewRule(store persistence.Persistence, reg *registry.Registry) *Rule {
	return &Rule{
		persistence: store,
		registry:    reg,
	}
}

// Create stores a new draft rule. The rule always starts in draft
// regardless of the requested status.
func (s *Rule) Create(ctx context.Context, rule *models.WorkflowRule) (*models.WorkflowRule, error) {
	if rule == nil {
		return nil, newServiceError("create_rule", ErrRuleNil)
	}

	rule.ID = "rule-" + uuid.New().String()[:8]
	rule.Status = models.RuleStatusDraft
	normalizeNodeOrder(rule.Nodes)

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.validateDraft(rule); err != nil {
		return nil, err
	}

	if err := s.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	return rule, nil
}

// Update replaces an existing draft rule's editable fields.
func (s *Rule) Update(ctx context.Context, id string, updated *models.WorkflowRule) (*models.WorkflowRule, error) {
	if updated == nil {
		return nil, newServiceError("update_rule", ErrRuleNil)
	}

	rule, err := s.persistence.Rules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch rule.Status {
	case models.RuleStatusPublish:
		return nil, newServiceError("update_rule", ErrCannotModifyPublished)
	case models.RuleStatusTrash:
		return nil, newServiceError("update_rule", ErrRuleTrashed)
	}

	rule.Name = updated.Name
	rule.TriggerPoint = updated.TriggerPoint
	rule.Nodes = updated.Nodes
	rule.ContextCallable = updated.ContextCallable
	normalizeNodeOrder(rule.Nodes)
	rule.UpdatedAt = time.Now().UTC()

	if err := s.validateDraft(rule); err != nil {
		return nil, err
	}

	if err := s.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	return rule, nil
}

// Publish validates the rule completely and activates it. From the
// next trigger firing on, the rule materializes instances.
func (s *Rule) Publish(ctx context.Context, id string) (*models.WorkflowRule, error) {
	rule, err := s.persistence.Rules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rule.Status == models.RuleStatusTrash {
		return nil, newServiceError("publish_rule", ErrRuleTrashed)
	}

	if err := s.validateForPublish(rule); err != nil {
		return nil, err
	}

	rule.Status = models.RuleStatusPublish
	rule.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	return rule, nil
}

// Unpublish moves a published rule back to draft for editing.
func (s *Rule) Unpublish(ctx context.Context, id string) (*models.WorkflowRule, error) {
	rule, err := s.persistence.Rules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rule.Status == models.RuleStatusTrash {
		return nil, newServiceError("unpublish_rule", ErrRuleTrashed)
	}

	rule.Status = models.RuleStatusDraft
	rule.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	return rule, nil
}

// Trash soft-deletes the rule; it stops materializing but stays
// recoverable.
func (s *Rule) Trash(ctx context.Context, id string) error {
	rule, err := s.persistence.Rules().GetByID(ctx, id)
	if err != nil {
		return err
	}

	rule.Status = models.RuleStatusTrash
	rule.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Rules().Save(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

func (s *Rule) Get(ctx context.Context, id string) (*models.WorkflowRule, error) {
	return s.persistence.Rules().GetByID(ctx, id)
}

func (s *Rule) List(ctx context.Context) ([]*models.WorkflowRule, error) {
	return s.persistence.Rules().List(ctx)
}

// normalizeNodeOrder fills in the default priority and sorts nodes by
// it, keeping the submitted order for equal priorities. The stored
// array order is what instances execute; priority only matters here at
// authoring time.
func normalizeNodeOrder(nodes []*models.Node) {
	for _, node := range nodes {
		if node != nil && node.Priority == 0 {
			node.Priority = models.DefaultPriority
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Priority < nodes[j].Priority
	})
}

// validateDraft checks the fields a draft must already have well
// formed. Node params are checked against their definition schemas
// only at publish time, so drafts can reference definitions that are
// still being configured.
func (s *Rule) validateDraft(rule *models.WorkflowRule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return newServiceError("validate_rule", ErrRuleNameRequired)
	}

	if !strings.HasPrefix(rule.TriggerPoint, models.TriggerPointPrefix) {
		return newServiceError("validate_rule", ErrTriggerPointInvalid)
	}

	for i, node := range rule.Nodes {
		if err := node.Validate(); err != nil {
			return &ServiceError{
				Op:      "validate_rule",
				Message: fmt.Sprintf("node %d: %v", i, err),
				Err:     ErrInvalidRequest,
			}
		}
	}

	return nil
}

// validateForPublish runs the full validation a rule must pass before
// it may materialize instances.
func (s *Rule) validateForPublish(rule *models.WorkflowRule) error {
	if err := s.validateDraft(rule); err != nil {
		return err
	}

	if len(rule.Nodes) == 0 {
		return newServiceError("publish_rule", ErrNodesRequired)
	}

	for i, node := range rule.Nodes {
		if err := s.registry.ValidateNode(node); err != nil {
			return &ServiceError{
				Op:      "publish_rule",
				Message: fmt.Sprintf("node %d: %v", i, err),
				Err:     ErrInvalidRequest,
			}
		}
	}

	return nil
}
