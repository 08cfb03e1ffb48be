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

// TemplateRepository stores reusable message templates.
type TemplateRepository struct {
	client *goredis.Client
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.MessageTemplate) error {
	data, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	if err := r.client.Set(ctx, templateKeyPrefix+template.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.MessageTemplate, error) {
	data, err := r.client.Get(ctx, templateKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}

	var template models.MessageTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", id, err)
	}

	return &template, nil
}
