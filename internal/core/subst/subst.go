// SPDX-License-Identifier: Apache-2.0

// Package subst resolves {{name}} placeholders in step calls against the
// run's context store.
package subst

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/memory"
	"github.com/kusari-oss/stitch/internal/core/plan"
)

var (
	// placeholderRegex matches context references like {{step_1_id}}
	placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

	// exactRegex matches a string that is nothing but one placeholder
	exactRegex = regexp.MustCompile(`^\{\{(\w+)\}\}$`)
)

// Resolve returns a deep copy of v with every resolvable placeholder
// substituted. A string that is exactly one placeholder (after trimming)
// takes the raw context value, preserving its type; placeholders embedded in
// larger strings are replaced textually. Unknown names are left as literal
// text. The input is never mutated.
func Resolve(v interface{}, ctx memory.Reader) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		resolved := make(map[string]interface{}, len(val))
		for k, item := range val {
			resolved[k] = Resolve(item, ctx)
		}
		return resolved

	case []interface{}:
		resolved := make([]interface{}, len(val))
		for i, item := range val {
			resolved[i] = Resolve(item, ctx)
		}
		return resolved

	case string:
		return resolveString(val, ctx)

	default:
		return val
	}
}

// ResolveCall resolves the endpoint, query parameters, and payload of a step
// call. The endpoint stays a string; a raw-typed exact match is rendered
// into it.
func ResolveCall(c plan.Call, ctx memory.Reader) plan.Call {
	resolved := plan.Call{
		Method:   c.Method,
		Endpoint: stringify(Resolve(c.Endpoint, ctx)),
		Payload:  Resolve(c.Payload, ctx),
	}

	if c.Query != nil {
		resolved.Query = make(map[string]interface{}, len(c.Query))
		for k, v := range c.Query {
			resolved.Query[k] = Resolve(v, ctx)
		}
	}

	return resolved
}

func resolveString(s string, ctx memory.Reader) interface{} {
	if !strings.Contains(s, "{{") || !strings.Contains(s, "}}") {
		return s
	}

	// A field that is exactly one placeholder takes the raw value
	if m := exactRegex.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		if v, ok := ctx.Lookup(m[1]); ok {
			return v
		}
	}

	return placeholderRegex.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-2]
		v, ok := ctx.Lookup(name)
		if !ok {
			// Unknown names stay literal
			return match
		}
		return stringify(v)
	})
}

// stringify renders a context value for embedding in a larger string.
// Mappings and sequences become JSON; scalars use their natural form.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]interface{}, []interface{}:
		if data, err := json.Marshal(val); err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", v)
}
