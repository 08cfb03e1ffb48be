package file

import (
	"context"
	"os"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

const templatesDir = "templates"

// TemplateRepository stores message templates as JSON files.
type TemplateRepository struct {
	root string
}

func (r *TemplateRepository) Save(_ context.Context, template *models.MessageTemplate) error {
	return writeRecord(r.root, templatesDir, template.ID, template)
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.MessageTemplate, error) {
	template := &models.MessageTemplate{}
	if err := readRecord(r.root, templatesDir, id, template); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, err
	}

	return template, nil
}
