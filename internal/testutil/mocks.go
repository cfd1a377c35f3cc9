// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/kusari-oss/stitch/internal/core/format"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/report"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

// MockCaller provides a mock implementation of the tracker.Caller interface
// This can be used for executor tests and agent tests alike
type MockCaller struct {
	mock.Mock
}

// Call mocks the Call method
func (m *MockCaller) Call(ctx context.Context, req tracker.Request) (*tracker.Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracker.Outcome), args.Error(1)
}

// JSONOutcome builds a tracker outcome from a JSON body the way the HTTP
// caller would: numbers stay json.Number and anything below 400 is a success.
func JSONOutcome(statusCode int, body string) *tracker.Outcome {
	raw := []byte(body)

	decoded, err := format.DecodeJSON(raw)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad JSON outcome body: %v", err))
	}

	outcome := &tracker.Outcome{
		Success:    statusCode < 400,
		StatusCode: statusCode,
		Body:       decoded,
		Raw:        raw,
	}
	if !outcome.Success {
		outcome.Error = fmt.Sprintf("HTTP %d", statusCode)
	}
	return outcome
}

// MockPlanner provides a mock implementation of the planner.Generator
// interface
type MockPlanner struct {
	mock.Mock
}

// GeneratePlan mocks the GeneratePlan method
func (m *MockPlanner) GeneratePlan(ctx context.Context, request string) (*plan.Plan, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

// MockSink provides a mock implementation of the report.Sink interface
type MockSink struct {
	mock.Mock
}

// Deliver mocks the Deliver method
func (m *MockSink) Deliver(ctx context.Context, d report.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
