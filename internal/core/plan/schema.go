// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the wire contract for planner documents. Step indexes and
// ordering are checked separately in Validate since JSON Schema cannot
// express cross-item constraints.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["plan"],
  "properties": {
    "understanding": {"type": "string"},
    "plan": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["step", "description", "api_call"],
        "properties": {
          "step": {"type": "integer", "minimum": 1},
          "description": {"type": "string"},
          "api_call": {
            "type": "object",
            "required": ["method", "endpoint"],
            "properties": {
              "method": {"enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
              "endpoint": {"type": "string", "minLength": 1},
              "payload": {},
              "params": {
                "type": "object",
                "additionalProperties": {"type": ["string", "number", "boolean"]}
              }
            }
          }
        }
      }
    },
    "safety_checks": {"type": "array", "items": {"type": "string"}},
    "expected_outcome": {"type": "string"}
  }
}`

// ValidateDocument checks a parsed planner document against the plan schema
// and returns the list of violations
func ValidateDocument(doc map[string]interface{}) ([]string, error) {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error serializing document: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewBytesLoader(docBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		issues = append(issues, violation.String())
	}

	return issues, nil
}
