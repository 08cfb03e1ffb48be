// Package file provides a JSON-file record store implementation.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
// Records are stored as one JSON document per id under a subdirectory
// per record kind.
type Persistence struct {
	root      string
	rules     *RuleRepository
	instances *InstanceRepository
	schedules *ScheduleRepository
	templates *TemplateRepository
}

// NewPersistence creates a file persistence rooted at the given
// directory. A "file://" prefix on root is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		rules:     &RuleRepository{root: cleanRoot},
		instances: NewInstanceRepository(cleanRoot),
		schedules: &ScheduleRepository{root: cleanRoot},
		templates: &TemplateRepository{root: cleanRoot},
	}
}

func (fp *Persistence) Rules() persistence.RuleRepository {
	return fp.rules
}

func (fp *Persistence) Instances() persistence.InstanceRepository {
	return fp.instances
}

func (fp *Persistence) Schedules() persistence.ScheduleRepository {
	return fp.schedules
}

func (fp *Persistence) Templates() persistence.MessageTemplateRepository {
	return fp.templates
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// writeRecord marshals a record and writes it under dir/<id>.json,
// creating the directory when missing. The document is written to a
// temp file in the same directory and renamed into place, so a crash
// mid-write never leaves a truncated record behind.
func writeRecord(root, dir, id string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s record %s: %w", dir, id, err)
	}

	target := filepath.Join(root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	tmp, err := os.CreateTemp(target, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s record %s: %w", dir, id, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s record %s: %w", dir, id, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close %s record %s: %w", dir, id, err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to chmod %s record %s: %w", dir, id, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(target, id+".json")); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s record %s: %w", dir, id, err)
	}

	return nil
}

// readRecord unmarshals dir/<id>.json into record. It reports
// os.ErrNotExist when the record is missing.
func readRecord(root, dir, id string, record any) error {
	data, err := os.ReadFile(filepath.Join(root, dir, id+".json"))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, record); err != nil {
		return fmt.Errorf("failed to unmarshal %s record %s: %w", dir, id, err)
	}

	return nil
}

// listIDs returns the record ids present under dir.
func listIDs(root, dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s records: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

// deleteRecord removes dir/<id>.json; deleting a missing record is not
// an error.
func deleteRecord(root, dir, id string) error {
	err := os.Remove(filepath.Join(root, dir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s record %s: %w", dir, id, err)
	}

	return nil
}
