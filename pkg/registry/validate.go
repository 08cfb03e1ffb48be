package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// validateParams checks the literal parameters of a node against the
// definition's form-field schema. Parameters that only materialize at
// execution time (context references and callable specs) are excluded
// from both the document and the schema's required list.
func validateParams(definition protocol.NodeDefinition, params map[string]models.ParamValue) error {
	schema := definition.Schema()
	if schema == nil {
		return nil
	}

	document := make(map[string]any, len(params))
	deferred := make(map[string]bool)

	for key, value := range params {
		if value.Kind() == models.ParamLiteral {
			document[key] = value.LiteralValue()
		} else {
			deferred[key] = true
		}
	}

	schemaLoader := gojsonschema.NewGoLoader(withoutRequired(schema, deferred))
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation for %q failed: %w", definition.ID(), err)
	}

	if !result.Valid() {
		first := result.Errors()[0]

		return fmt.Errorf("invalid params for %q: %s", definition.ID(), first.String())
	}

	return nil
}

// withoutRequired copies the schema with the given keys dropped from
// its top-level required list.
func withoutRequired(schema map[string]any, skip map[string]bool) map[string]any {
	if len(skip) == 0 {
		return schema
	}

	required, ok := schema["required"].([]string)
	if !ok {
		if anyList, isAny := schema["required"].([]any); isAny {
			required = make([]string, 0, len(anyList))
			for _, item := range anyList {
				if name, isString := item.(string); isString {
					required = append(required, name)
				}
			}
		}
	}

	if len(required) == 0 {
		return schema
	}

	kept := make([]string, 0, len(required))

	for _, name := range required {
		if !skip[name] {
			kept = append(kept, name)
		}
	}

	copied := make(map[string]any, len(schema))
	for key, value := range schema {
		copied[key] = value
	}

	copied["required"] = kept

	return copied
}
