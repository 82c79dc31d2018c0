// Package envutil provides environment variable utilities.
package envutil

import (
	"fmt"
	"os"
	"strings"
)

// Resolve builds the child environment for an invocation.
// When inherit is true the caller's environment is the base; otherwise the
// base is empty. Overrides are applied on top and take precedence.
func Resolve(inherit bool, overrides map[string]string) []string {
	base := map[string]string{}
	if inherit {
		base = FromSlice(os.Environ())
	}
	return ToSlice(MergeEnvironment(base, overrides))
}

// MergeEnvironment merges base environment with overrides.
// Overrides take precedence.
func MergeEnvironment(base, override map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(override))

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		result[k] = v
	}

	return result
}

// FromSlice parses KEY=VALUE pairs into a map. Entries without '=' are
// dropped. Later entries win, matching OS resolution order.
func FromSlice(env []string) map[string]string {
	result := make(map[string]string, len(env))
	for _, e := range env {
		if idx := strings.IndexByte(e, '='); idx > 0 {
			result[e[:idx]] = e[idx+1:]
		}
	}
	return result
}

// ToSlice converts an environment map into KEY=VALUE pairs.
func ToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}
