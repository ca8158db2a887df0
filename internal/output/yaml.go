package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/corralvm/corral/internal/machine"
)

// YAMLFormatter formats definitions as YAML.
type YAMLFormatter struct{}

// FormatDefinition formats a single definition as YAML.
func (f *YAMLFormatter) FormatDefinition(def *machine.Definition) (string, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("failed to marshal definition to YAML: %w", err)
	}

	return string(data), nil
}

// FormatDefinitionList formats a list of definitions as a YAML stream
// (documents separated by ---).
func (f *YAMLFormatter) FormatDefinitionList(defs []*machine.Definition) (string, error) {
	if len(defs) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, def := range defs {
		data, err := yaml.Marshal(def)
		if err != nil {
			return "", fmt.Errorf("failed to marshal definition %s to YAML: %w", def.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}
