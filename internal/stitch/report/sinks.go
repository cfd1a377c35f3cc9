// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/core/plan"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

// DefaultCommentEndpoint is the v3 issue comment route trackers in the Jira
// family expose. The single %s verb takes the record key.
const DefaultCommentEndpoint = "/rest/api/3/issue/%s/comment"

var ErrNoTarget = errors.New("delivery has no target record")

// CommentSink posts the summary back to the originating record as a comment
// with an ADF document body.
type CommentSink struct {
	caller   tracker.Caller
	endpoint string
	logger   *slog.Logger
}

var _ Sink = (*CommentSink)(nil)

// NewCommentSink creates a comment sink. The endpoint is a format string
// with one %s verb for the record key; empty selects DefaultCommentEndpoint.
func NewCommentSink(caller tracker.Caller, endpoint string, logger *slog.Logger) *CommentSink {
	if endpoint == "" {
		endpoint = DefaultCommentEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CommentSink{
		caller:   caller,
		endpoint: endpoint,
		logger:   logger,
	}
}

// Deliver posts the summary as a comment. The run has already finished by
// the time sinks are involved, so a failed post surfaces as an error rather
// than touching the RunResult.
func (s *CommentSink) Deliver(ctx context.Context, d Delivery) error {
	if d.Target == "" {
		return ErrNoTarget
	}

	outcome, err := s.caller.Call(ctx, tracker.Request{
		Method:   plan.MethodPost,
		Endpoint: fmt.Sprintf(s.endpoint, d.Target),
		Payload:  map[string]interface{}{"body": tracker.WrapDoc(d.Summary)},
	})
	if err != nil {
		return fmt.Errorf("error posting results comment: %w", err)
	}
	if !outcome.Success {
		return fmt.Errorf("results comment rejected: %s", outcome.Error)
	}

	s.logger.Info("results comment posted",
		logging.RunID(d.Result.RunID),
		slog.String("target", d.Target))
	return nil
}

// WriterSink prints the summary to a writer. The CLI points it at stdout.
type WriterSink struct {
	w io.Writer
}

var _ Sink = (*WriterSink)(nil)

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Deliver(_ context.Context, d Delivery) error {
	if _, err := fmt.Fprintln(s.w, d.Summary); err != nil {
		return fmt.Errorf("error writing summary: %w", err)
	}
	return nil
}
