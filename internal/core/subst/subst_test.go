// SPDX-License-Identifier: Apache-2.0

package subst

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusari-oss/stitch/internal/core/memory"
	"github.com/kusari-oss/stitch/internal/core/plan"
)

func testStore(t *testing.T) *memory.Store {
	t.Helper()

	store := memory.NewStore()
	err := store.Record(1, memory.StepRecord{
		ID:    json.Number("1001"),
		Key:   "PROJ-42",
		Result: map[string]interface{}{
			"id":   json.Number("1001"),
			"key":  "PROJ-42",
			"name": "Apollo",
		},
		HasID:  true,
		HasKey: true,
	})
	require.NoError(t, err)

	err = store.Record(2, memory.StepRecord{
		Result: []interface{}{"alpha", "beta"},
	})
	require.NoError(t, err)

	return store
}

func TestResolve(t *testing.T) {
	store := testStore(t)

	t.Run("ExactPlaceholderKeepsType", func(t *testing.T) {
		resolved := Resolve("{{step_1_id}}", store)
		assert.Equal(t, json.Number("1001"), resolved)
	})

	t.Run("ExactPlaceholderWithWhitespace", func(t *testing.T) {
		resolved := Resolve("  {{step_1_id}}  ", store)
		assert.Equal(t, json.Number("1001"), resolved)
	})

	t.Run("EmbeddedPlaceholderIsTextual", func(t *testing.T) {
		resolved := Resolve("projects/{{step_1_id}}/tasks", store)
		assert.Equal(t, "projects/1001/tasks", resolved)
	})

	t.Run("MultiplePlaceholdersInOneString", func(t *testing.T) {
		resolved := Resolve("{{step_1_key}}: created as {{step_1_id}}", store)
		assert.Equal(t, "PROJ-42: created as 1001", resolved)
	})

	t.Run("UnknownPlaceholderStaysLiteral", func(t *testing.T) {
		resolved := Resolve("projects/{{step_9_id}}/tasks", store)
		assert.Equal(t, "projects/{{step_9_id}}/tasks", resolved)
	})

	t.Run("ExactUnknownPlaceholderStaysLiteral", func(t *testing.T) {
		resolved := Resolve("{{step_9_id}}", store)
		assert.Equal(t, "{{step_9_id}}", resolved)
	})

	t.Run("PlainStringPassesThrough", func(t *testing.T) {
		resolved := Resolve("no placeholders here", store)
		assert.Equal(t, "no placeholders here", resolved)
	})

	t.Run("NonStringScalarsPassThrough", func(t *testing.T) {
		assert.Equal(t, json.Number("7"), Resolve(json.Number("7"), store))
		assert.Equal(t, true, Resolve(true, store))
		assert.Nil(t, Resolve(nil, store))
	})

	t.Run("EmbeddedMapBecomesJSON", func(t *testing.T) {
		resolved := Resolve("result: {{step_1_result}}", store)
		s, ok := resolved.(string)
		require.True(t, ok)
		assert.Contains(t, s, `"key":"PROJ-42"`)
		assert.Contains(t, s, `"id":1001`)
	})

	t.Run("ExactMapKeepsShape", func(t *testing.T) {
		resolved := Resolve("{{step_1_result}}", store)
		m, ok := resolved.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Apollo", m["name"])
	})

	t.Run("EmbeddedSliceBecomesJSON", func(t *testing.T) {
		resolved := Resolve("items: {{step_2_result}}", store)
		assert.Equal(t, `items: ["alpha","beta"]`, resolved)
	})
}

func TestResolveNested(t *testing.T) {
	store := testStore(t)

	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			"project": "{{step_1_key}}",
			"parent":  "{{step_1_id}}",
			"labels":  []interface{}{"auto", "{{step_1_key}}"},
		},
		"count": json.Number("3"),
	}

	resolved, ok := Resolve(payload, store).(map[string]interface{})
	require.True(t, ok)

	fields, ok := resolved["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "PROJ-42", fields["project"])
	assert.Equal(t, json.Number("1001"), fields["parent"])
	assert.Equal(t, []interface{}{"auto", "PROJ-42"}, fields["labels"])
	assert.Equal(t, json.Number("3"), resolved["count"])
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	store := testStore(t)

	payload := map[string]interface{}{
		"project": "{{step_1_key}}",
		"labels":  []interface{}{"{{step_1_id}}"},
	}

	resolved, ok := Resolve(payload, store).(map[string]interface{})
	require.True(t, ok)
	resolved["extra"] = "added"

	assert.Equal(t, "{{step_1_key}}", payload["project"])
	assert.Equal(t, []interface{}{"{{step_1_id}}"}, payload["labels"])
	assert.NotContains(t, payload, "extra")
}

func TestResolveCall(t *testing.T) {
	store := testStore(t)

	t.Run("ResolvesAllParts", func(t *testing.T) {
		call := plan.Call{
			Method:   plan.MethodPost,
			Endpoint: "projects/{{step_1_id}}/tasks",
			Payload: map[string]interface{}{
				"parent": "{{step_1_id}}",
			},
			Query: map[string]interface{}{
				"project": "{{step_1_key}}",
				"limit":   json.Number("50"),
			},
		}

		resolved := ResolveCall(call, store)

		assert.Equal(t, plan.MethodPost, resolved.Method)
		assert.Equal(t, "projects/1001/tasks", resolved.Endpoint)
		payload, ok := resolved.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, json.Number("1001"), payload["parent"])
		assert.Equal(t, "PROJ-42", resolved.Query["project"])
		assert.Equal(t, json.Number("50"), resolved.Query["limit"])
	})

	t.Run("ExactEndpointRendersRawValue", func(t *testing.T) {
		call := plan.Call{Method: plan.MethodGet, Endpoint: "{{step_1_id}}"}
		resolved := ResolveCall(call, store)
		assert.Equal(t, "1001", resolved.Endpoint)
	})

	t.Run("NilQueryStaysNil", func(t *testing.T) {
		call := plan.Call{Method: plan.MethodGet, Endpoint: "projects"}
		resolved := ResolveCall(call, store)
		assert.Nil(t, resolved.Query)
	})
}
