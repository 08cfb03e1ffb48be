package params

import (
	"context"
	"regexp"

	"github.com/Jeffail/gabs/v2"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

// renderSubjects is the fixed, ordered set of named subjects a message
// template may reference. The order never changes so rendering the
// same template against the same instance is idempotent.
var renderSubjects = []string{"user", "product", "post", "order", "subscription", "activity"}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-z_]+)\.([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes {{subject.attribute}} placeholders in a template
// string with values from the node's resolved subject parameters.
// Rendering never fails: unknown subjects, unresolvable subjects and
// missing attributes all substitute the empty string.
func (r *Resolver) Render(ctx context.Context, template string, node *models.Node, instance *models.WorkflowInstance) string {
	subjects := make(map[string]*gabs.Container, len(renderSubjects))

	for _, name := range renderSubjects {
		value, err := r.Resolve(ctx, node, instance, name)
		if err != nil || value == nil {
			continue
		}

		subjects[name] = gabs.Wrap(value)
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		match := placeholderPattern.FindStringSubmatch(token)
		subject, ok := subjects[match[1]]
		if !ok {
			return ""
		}

		attribute := subject.Path(match[2])
		if attribute == nil {
			return ""
		}

		return stringify(attribute.Data())
	})
}
