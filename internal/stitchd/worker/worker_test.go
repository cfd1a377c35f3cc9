// SPDX-License-Identifier: Apache-2.0

package worker_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/kusari-oss/stitch/internal/stitch/agent"
	"github.com/kusari-oss/stitch/internal/stitchd/worker"
	"github.com/kusari-oss/stitch/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeModel always plans the same single GET step
type fakeModel struct{}

const cannedPlan = `{
	"understanding": "Look at the record",
	"plan": [
		{"step": 1, "description": "Fetch it", "api_call": {"method": "GET", "endpoint": "/records/1"}}
	]
}`

func (fakeModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: cannedPlan}},
	}, nil
}

func (fakeModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return cannedPlan, nil
}

func testRegistry(caller *testutil.MockCaller) *agent.Registry {
	registry := agent.NewRegistry(agent.Context{
		Caller: caller,
		Model:  fakeModel{},
		Logger: quietLogger(),
	})
	registry.Register(agent.Profile{Name: "helper", Prompt: "You plan tracker work."})
	return registry
}

func TestPoolProcessesAllQueuedJobs(t *testing.T) {
	caller := new(testutil.MockCaller)
	caller.On("Call", mock.Anything, mock.Anything).
		Return(testutil.JSONOutcome(200, `{"id": 1}`), nil)

	pool := worker.NewPool(testRegistry(caller), 2, 8, quietLogger())
	pool.Start(context.Background())

	for i := 0; i < 5; i++ {
		err := pool.Submit(worker.Job{
			ID:      fmt.Sprintf("job-%d", i),
			Agent:   "helper",
			Request: agent.Request{Target: fmt.Sprintf("OPS-%d", i), Summary: "look"},
		})
		require.NoError(t, err)
	}

	pool.Stop()

	assert.Len(t, caller.Calls, 5, "every queued job should have run its one step")
	assert.Zero(t, pool.QueueDepth())
}

func TestSubmitRejectsWhenQueueIsFull(t *testing.T) {
	// Not started, so nothing drains the queue
	pool := worker.NewPool(testRegistry(new(testutil.MockCaller)), 1, 1, quietLogger())

	require.NoError(t, pool.Submit(worker.Job{ID: "job-1", Agent: "helper"}))

	err := pool.Submit(worker.Job{ID: "job-2", Agent: "helper"})
	assert.ErrorIs(t, err, worker.ErrQueueFull)
	assert.Equal(t, 1, pool.QueueDepth())
}

func TestUnknownAgentJobIsDropped(t *testing.T) {
	caller := new(testutil.MockCaller)

	pool := worker.NewPool(testRegistry(caller), 1, 4, quietLogger())
	pool.Start(context.Background())

	require.NoError(t, pool.Submit(worker.Job{
		ID:      "job-1",
		Agent:   "nobody",
		Request: agent.Request{Target: "OPS-1", Summary: "look"},
	}))

	pool.Stop()

	assert.Empty(t, caller.Calls)
}

func TestEmptyRequestJobIsDropped(t *testing.T) {
	caller := new(testutil.MockCaller)

	pool := worker.NewPool(testRegistry(caller), 1, 4, quietLogger())
	pool.Start(context.Background())

	require.NoError(t, pool.Submit(worker.Job{ID: "job-1", Agent: "helper"}))

	pool.Stop()

	assert.Empty(t, caller.Calls)
}
