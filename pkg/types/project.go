// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ProjectDefinition describes one internal research interest. The registry of
// definitions is the single source of truth for valid project ids: the
// project-classification stage and the validator both check against it.
type ProjectDefinition struct {
	// ID is the stable project key (e.g. "agent-hijacking").
	ID string `json:"id" yaml:"id"`

	// Description is free text handed to the model when matching papers.
	Description string `json:"description" yaml:"description"`
}

// LoadProjects reads the project registry from a YAML file. A missing file is
// not an error: it returns a nil slice, which disables project classification
// for the run.
func LoadProjects(path string) ([]ProjectDefinition, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading project registry %s: %w", path, err)
	}

	var projects []ProjectDefinition
	if err := yaml.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parsing project registry %s: %w", path, err)
	}

	for i, p := range projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project registry %s: entry %d has no id", path, i)
		}
	}
	return projects, nil
}

// ProjectIDs returns the registry's id set in definition order.
func ProjectIDs(projects []ProjectDefinition) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}
