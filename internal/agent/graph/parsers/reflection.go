package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// SatisfactoryScore is the lowest score treated as satisfactory when the
// verdict omits is_satisfactory.
const SatisfactoryScore = 7

// ParseReflection decodes the Reflector's structured verdict
// {is_satisfactory, score, issues, feedback}. Loose types are coerced.
func ParseReflection(content string) (verdict *model.ReflectionVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "reflection_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("reflection parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			verdict = nil
		}
	}()

	content, _ = clampContent("reflection_parser", content)
	raw, err := extractJSON(content, '{', '}')
	if err != nil {
		return nil, fmt.Errorf("reflection verdict: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("reflection verdict json: %w", err)
	}

	verdict = &model.ReflectionVerdict{
		Score:    asInt(m["score"]),
		Issues:   asStrings(m["issues"]),
		Feedback: asString(m["feedback"]),
	}
	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 10 {
		verdict.Score = 10
	}
	if v, ok := m["is_satisfactory"]; ok {
		verdict.IsSatisfactory = asBool(v)
	} else {
		verdict.IsSatisfactory = verdict.Score >= SatisfactoryScore
	}
	return verdict, nil
}
