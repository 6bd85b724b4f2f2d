package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dinewise-core/server/internal/agent/model"
)

// ParseIntent reads the Router's reply. It accepts a bare label, a label
// surrounded by prose, or a JSON object with an "intent" field.
func ParseIntent(content string) (model.Intent, error) {
	content, _ = clampContent("intent_parser", content)
	s := strings.TrimSpace(stripFences(content))
	if s == "" {
		return "", fmt.Errorf("empty router reply")
	}

	if strings.HasPrefix(s, "{") {
		var obj struct {
			Intent string `json:"intent"`
		}
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			if it := normalizeIntent(obj.Intent); it.Valid() {
				return it, nil
			}
		}
	}

	if it := normalizeIntent(s); it.Valid() {
		return it, nil
	}

	// fall back to the first label token found in free text
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && r != '_' && r != '-'
	})
	for _, f := range fields {
		if it := normalizeIntent(f); it.Valid() {
			return it, nil
		}
	}
	return "", fmt.Errorf("unknown intent label: %s", safeSnippet(s))
}

func normalizeIntent(v string) model.Intent {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.Trim(v, `"'.:`)
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	if v == "offtopic" {
		v = string(model.IntentOffTopic)
	}
	return model.Intent(v)
}
