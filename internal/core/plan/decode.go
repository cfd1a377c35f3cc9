// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeResult is the outcome of decoding a planner document. It is a closed
// set of variants; callers are expected to type-switch over all of them. A
// document is never repaired: anything short of a fully valid plan surfaces
// as one of the failure variants with the raw upstream content attached.
type DecodeResult interface {
	decodeResult()
}

// ValidPlan carries a structurally valid, executable plan
type ValidPlan struct {
	Plan *Plan
}

// MissingSteps means the document parsed but has no "plan" steps key
type MissingSteps struct {
	Raw map[string]interface{}
}

// InvalidPlan means the document has a steps key but violates the plan
// schema or the step ordering rules
type InvalidPlan struct {
	Issues []string
	Raw    map[string]interface{}
}

// UpstreamError means the planner produced something that is not a JSON
// document, or an explicit error marker
type UpstreamError struct {
	Message string
	Raw     string
}

func (ValidPlan) decodeResult()     {}
func (MissingSteps) decodeResult()  {}
func (InvalidPlan) decodeResult()   {}
func (UpstreamError) decodeResult() {}

// Decode classifies a raw planner document into exactly one variant
func Decode(data []byte) DecodeResult {
	doc, err := decodeDocument(data)
	if err != nil {
		return UpstreamError{
			Message: fmt.Sprintf("planner returned invalid JSON: %v", err),
			Raw:     string(data),
		}
	}

	// An explicit error marker from the planner wins over everything else
	if errVal, ok := doc["error"]; ok {
		return UpstreamError{
			Message: fmt.Sprintf("%v", errVal),
			Raw:     string(data),
		}
	}

	if _, ok := doc["plan"]; !ok {
		return MissingSteps{Raw: doc}
	}

	if issues, err := ValidateDocument(doc); err != nil {
		return UpstreamError{
			Message: fmt.Sprintf("error validating plan document: %v", err),
			Raw:     string(data),
		}
	} else if len(issues) > 0 {
		return InvalidPlan{Issues: issues, Raw: doc}
	}

	var p Plan
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return UpstreamError{
			Message: fmt.Sprintf("error decoding plan document: %v", err),
			Raw:     string(data),
		}
	}

	canonicalize(&p)
	if issues := Validate(&p); len(issues) > 0 {
		return InvalidPlan{Issues: issues, Raw: doc}
	}

	return ValidPlan{Plan: &p}
}

// decodeDocument parses the raw bytes into a JSON object, keeping numbers as
// json.Number so payload literals survive untouched
func decodeDocument(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	return doc, nil
}
