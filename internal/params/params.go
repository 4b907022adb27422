// Package params resolves ${VAR}-style placeholders in server environment
// values, generalized from the monorepo's {{var}} template-substitution
// helper to the control plane's flatter env-var model.
package params

import (
	"os"
	"regexp"
)

// placeholderRE matches a ${VAR} reference; VAR follows shell identifier
// rules.
var placeholderRE = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ResolveEnv resolves ${VAR} placeholders inside each value of env against
// the process environment. A reference to a variable that isn't set
// resolves to an empty string.
func ResolveEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = resolveValue(v)
	}
	return out
}

func resolveValue(v string) string {
	return placeholderRE.ReplaceAllStringFunc(v, func(match string) string {
		name := placeholderRE.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// ToEnvList converts a resolved key=value map into the "KEY=VALUE" slice
// form the container runtime expects.
func ToEnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
