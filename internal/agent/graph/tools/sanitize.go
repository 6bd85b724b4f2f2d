package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SanitizeArguments normalises model-produced tool arguments before they
// reach a handler: strings are trimmed, numbers clamped, and wrongly typed
// optional fields dropped. Input that is not a JSON object is returned as-is.
func SanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	switch name {
	case ToolRestaurantData:
		coerceString(m, "query", true)
		coerceString(m, "cuisine", false)
		coerceString(m, "location", false)
		coerceString(m, "price_range", false)
		coerceStringList(m, "dietary_restrictions")
		coerceInt(m, "limit", 1, maxSearchLimit)
	case ToolMemoryRetrieval:
		coerceString(m, "query", true)
		coerceStringList(m, "memory_types")
		coerceInt(m, "top_k", 1, 20)
	case ToolRestaurantExplorer:
		coerceString(m, "query", true)
	case ToolRestaurantResearch:
		coerceString(m, "restaurant_name", true)
		coerceString(m, "location", true)
		coerceStringList(m, "research_topics")
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

// coerceString trims string fields. Required fields are stringified when
// the model sent another type; optional ones are dropped.
func coerceString(m map[string]any, key string, required bool) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case string:
		m[key] = strings.TrimSpace(vv)
	default:
		if required && v != nil {
			m[key] = strings.TrimSpace(fmt.Sprint(v))
		} else {
			delete(m, key)
		}
	}
}

// coerceStringList accepts an array or a comma separated string.
func coerceStringList(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	var out []string
	switch vv := v.(type) {
	case []any:
		for _, item := range vv {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(vv, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		delete(m, key)
		return
	}
	m[key] = out
}

func coerceInt(m map[string]any, key string, min, max int) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case float64:
		// JSON numbers decode as float64
		m[key] = clampInt(int(vv), min, max)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(vv)); err == nil {
			m[key] = clampInt(n, min, max)
		} else {
			delete(m, key)
		}
	default:
		delete(m, key)
	}
}
