package schema

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogueFile is the on-disk YAML shape:
//
//	schemas:
//	  - name: Project
//	    collection: projects
//	    indexes:
//	      - keys: [{field: code, direction: 1}]
//	        unique: true
type catalogueFile struct {
	Schemas []Definition `yaml:"schemas"`
}

// Parse decodes a YAML catalogue and returns the normalized, validated
// definitions in file order. Duplicate names are rejected so a catalogue file
// cannot silently overwrite itself.
func Parse(data []byte) ([]Definition, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Join(ErrInvalidDefinition, err)
	}
	if len(file.Schemas) == 0 {
		return nil, ErrEmptyCatalogue
	}

	seen := make(map[string]struct{}, len(file.Schemas))
	defs := make([]Definition, 0, len(file.Schemas))
	for _, d := range file.Schemas {
		d = d.Normalize()
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
		seen[d.Name] = struct{}{}
		defs = append(defs, d)
	}
	return defs, nil
}

// LoadFile reads and parses a YAML catalogue from disk. It is intended for
// the fixed registration call at process start.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema catalogue: %w", err)
	}
	return Parse(data)
}
