package rules

import (
	"fmt"

	"github.com/Dv04/aixavier/internal/events"
)

// Params holds the free-form parameters of one rule as decoded from YAML.
type Params map[string]any

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns a numeric parameter, or def when absent or not numeric.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p.OptFloat(key); ok {
		return v
	}
	return def
}

// OptFloat returns a numeric parameter and whether it was set.
func (p Params) OptFloat(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	return events.AsFloat(v)
}

// String returns a parameter rendered as a string, or def when absent.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Strings returns a list parameter. A single scalar is treated as a
// one-element list.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// Bool returns a boolean parameter; anything but true is false.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}
