package core

import "strings"

// Environment is the deployment stage the agent runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

var environmentAliases = map[string]Environment{
	"dev":   Development,
	"local": Development,
	"stage": Staging,
	"test":  Testing,
	"ci":    Testing,
	"prod":  Production,
	"live":  Production,
}

func (e Environment) String() string {
	return string(e)
}

// JSONLogs reports whether log output should be machine-readable JSON
// instead of the colored console format.
func (e Environment) JSONLogs() bool {
	return e == Production || e == Staging
}

// ParseEnvironment accepts full names and short aliases in any case.
// Unknown values resolve to Development.
func ParseEnvironment(v string) Environment {
	v = strings.ToLower(strings.TrimSpace(v))
	switch env := Environment(v); env {
	case Development, Staging, Testing, Production:
		return env
	}
	if env, ok := environmentAliases[v]; ok {
		return env
	}
	return Development
}
