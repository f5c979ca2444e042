package schema

import "errors"

var (
	// ErrInvalidDefinition is returned when a schema definition fails validation.
	ErrInvalidDefinition = errors.New("invalid schema definition")

	// ErrEmptyCatalogue is returned when a catalogue file parses to zero definitions.
	ErrEmptyCatalogue = errors.New("schema catalogue is empty")

	// ErrDuplicateName is returned when a catalogue file registers the same name twice.
	ErrDuplicateName = errors.New("duplicate schema name in catalogue")
)
