package seeddata

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed assignments.yaml
var defaultAssignments []byte

// LoadDefault returns the assignment set shipped with the binary.
func LoadDefault() ([]Definition, error) {
	return Parse(defaultAssignments)
}

// Load reads definitions from a YAML or JSON file holding a list of assignments.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes and validates a definition list. JSON input is accepted
// because it is valid YAML.
func Parse(data []byte) ([]Definition, error) {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing seed definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no assignments defined")
	}

	seen := make(map[uuid.UUID]string, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, err
		}
		id := defs[i].ID()
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("assignments %q and %q share the same key", prev, defs[i].Title)
		}
		seen[id] = defs[i].Title
	}
	return defs, nil
}
