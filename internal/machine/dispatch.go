package machine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAssignment indicates a key/value projection that targets no
// settable attribute on its context, or carries a value of the wrong type.
// Assignments fail loudly here instead of silently no-opping downstream.
var ErrInvalidAssignment = errors.New("invalid assignment")

// NormalizeKey converts a configuration key to setter-parameter form:
// lowercase with hyphens folded to underscores.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// applySettings runs each setting through a closed dispatch table.
func applySettings(kind string, table map[string]func(any) error, settings []Setting) error {
	for _, s := range settings {
		key := NormalizeKey(s.Key)
		set, ok := table[key]
		if !ok {
			return fmt.Errorf("%w: %s has no attribute %q", ErrInvalidAssignment, kind, key)
		}
		if err := set(s.Value); err != nil {
			return fmt.Errorf("%s.%s: %w", kind, key, err)
		}
	}
	return nil
}

func stringValue(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidAssignment, v)
	}
	return s, nil
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidAssignment, v)
	}
}

func boolValue(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected boolean, got %T", ErrInvalidAssignment, v)
	}
	return b, nil
}

// stringMapValue accepts a mapping of string keys to scalar values,
// stringifying the values (env vars and extra_vars arrive this way).
func stringMapValue(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected mapping, got %T", ErrInvalidAssignment, v)
	}

	out := make(map[string]string, len(m))
	for k, val := range m {
		s, err := scalarString(val)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

// scalarString renders a primitive scalar as a string.
func scalarString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", s), nil
	default:
		return "", fmt.Errorf("%w: expected scalar, got %T", ErrInvalidAssignment, v)
	}
}
