package parsers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	logx "github.com/dinewise-core/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxRecords    = 50         // maximum number of restaurants to keep
	maxErrSnippet = 200        // limit error snippet size
)

// clampContent enforces maxContentLen and reports whether it truncated.
func clampContent(component, content string) (string, bool) {
	if len(content) <= maxContentLen {
		return content, false
	}
	logx.Warn().
		Str("component", component).
		Int("max_len", maxContentLen).
		Int("orig_len", len(content)).
		Msg("content truncated due to size limit")
	return content[:maxContentLen], true
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// extractJSON returns the first balanced JSON value opened by open and
// closed by close, honouring string literals.
func extractJSON(s string, open, close byte) (string, error) {
	s = stripFences(s)
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", fmt.Errorf("no %q found", open)
	}
	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced %q", open)
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

// asFloat coerces JSON numbers and numeric strings; bad values yield 0.
func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
	return 0
}

// asInt coerces numbers and strings such as "1,234 reviews" by keeping digits.
func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		var b strings.Builder
		for _, r := range t {
			if unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		n, err := strconv.Atoi(b.String())
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

func asStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
