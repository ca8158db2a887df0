package output

import (
	"encoding/json"
	"fmt"

	"github.com/corralvm/corral/internal/machine"
)

// JSONFormatter formats definitions as JSON.
type JSONFormatter struct{}

// FormatDefinition formats a single definition as JSON.
func (f *JSONFormatter) FormatDefinition(def *machine.Definition) (string, error) {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal definition to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatDefinitionList formats a list of definitions as a JSON array.
func (f *JSONFormatter) FormatDefinitionList(defs []*machine.Definition) (string, error) {
	if len(defs) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal definitions to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
