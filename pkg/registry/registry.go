// Package registry holds the process-wide node definition catalog.
// Definitions are registered during startup and the registry is frozen
// before any worker starts consuming, so steady-state lookups need no
// locking beyond the read path.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// ErrDefinitionNotFound is reported when a node references a
// definition identifier nothing registered. Callers treat it as a
// normal outcome, not a fault.
var ErrDefinitionNotFound = errors.New("node definition not registered")

// ErrRegistryFrozen is reported for registrations after Freeze.
var ErrRegistryFrozen = errors.New("registry is frozen")

// Registry maps node definition identifiers to their executable
// behaviors. Last registration for an identifier wins.
type Registry struct {
	logger *slog.Logger

	mu          sync.RWMutex
	frozen      bool
	definitions map[string]protocol.NodeDefinition
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger.With("module", "registry"),
		definitions: make(map[string]protocol.NodeDefinition),
	}
}

// Register adds or overwrites a definition by its identifier. It fails
// once the registry has been frozen.
func (r *Registry) Register(definition protocol.NodeDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("cannot register %q: %w", definition.ID(), ErrRegistryFrozen)
	}

	r.definitions[definition.ID()] = definition
	r.logger.Debug("Registered node definition", "definition_id", definition.ID())

	return nil
}

// Freeze ends the registration phase. After Freeze the registry is
// read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
}

// Get looks up a definition by identifier.
func (r *Registry) Get(definitionID string) (protocol.NodeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definition, ok := r.definitions[definitionID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", definitionID, ErrDefinitionNotFound)
	}

	return definition, nil
}

// All returns every registered definition sorted by identifier.
func (r *Registry) All() []protocol.NodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]protocol.NodeDefinition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		all = append(all, definition)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ID() < all[j].ID()
	})

	return all
}

// ValidateNode checks a saved node against its definition's declared
// form-field schema. Context references and callable specs are left
// out of the validated document since their concrete values only exist
// at execution time.
func (r *Registry) ValidateNode(node *models.Node) error {
	definition, err := r.Get(node.DefinitionID)
	if err != nil {
		return err
	}

	return validateParams(definition, node.Params)
}
