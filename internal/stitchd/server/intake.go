// SPDX-License-Identifier: Apache-2.0

package server

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
	"github.com/kusari-oss/stitch/internal/stitchd/worker"
)

// secretHeader carries the shared webhook secret on every intake request
const secretHeader = "x-webhook-secret"

// requestTypePath is where trackers in the Jira family put the service-desk
// request type
const requestTypePath = "fields.customfield_10010.requestType.name"

type errorResponse struct {
	Error           string   `json:"error"`
	Status          int      `json:"status"`
	AvailableAgents []string `json:"available_agents,omitempty"`
}

type intakeResponse struct {
	Received  bool   `json:"received"`
	Agent     string `json:"agent"`
	IssueKey  string `json:"issueKey"`
	JobID     string `json:"job_id"`
	Queued    bool   `json:"queued"`
	QueueSize int    `json:"queue_size"`
}

// intake is the normalized form of a webhook payload
type intake struct {
	IssueKey    string
	Summary     string
	Description string
	RequestType string
}

// verifySecret compares the shared secret in constant time. A missing
// header compares as the empty string and fails the same way a wrong one
// does.
func (s *Server) verifySecret(c *gin.Context) bool {
	provided := c.GetHeader(secretHeader)
	if !hmac.Equal([]byte(provided), []byte(s.cfg.Server.WebhookSecret)) {
		s.logger.Warn("invalid webhook secret", slog.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, errorResponse{
			Error:  "invalid webhook secret",
			Status: http.StatusUnauthorized,
		})
		return false
	}
	return true
}

func (s *Server) handleIntake(c *gin.Context) {
	if !s.verifySecret(c) {
		return
	}

	name := c.Param("agent")
	if _, ok := s.registry.Get(name); !ok {
		c.JSON(http.StatusNotFound, errorResponse{
			Error:           fmt.Sprintf("unknown agent: %s", name),
			Status:          http.StatusNotFound,
			AvailableAgents: s.registry.Names(),
		})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  fmt.Sprintf("error reading payload: %v", err),
			Status: http.StatusBadRequest,
		})
		return
	}

	in, err := extractIntake(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	job := worker.Job{
		ID:    uuid.New().String(),
		Agent: name,
		Request: agent.Request{
			Target:      in.IssueKey,
			Summary:     in.Summary,
			Description: in.Description,
		},
	}

	if err := s.pool.Submit(job); err != nil {
		s.logger.Warn("intake rejected",
			logging.Agent(name),
			slog.String("target", in.IssueKey),
			logging.Error(err))
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error:  "job queue is full, retry later",
			Status: http.StatusServiceUnavailable,
		})
		return
	}

	s.logger.Info("intake queued",
		slog.String("job_id", job.ID),
		logging.Agent(name),
		slog.String("target", in.IssueKey),
		slog.String("request_type", in.RequestType))

	c.JSON(http.StatusAccepted, intakeResponse{
		Received:  true,
		Agent:     name,
		IssueKey:  in.IssueKey,
		JobID:     job.ID,
		Queued:    true,
		QueueSize: s.pool.QueueDepth(),
	})
}

// extractIntake normalizes the two payload shapes trackers send: the full
// webhook body with an "issue" object, or the direct flat form.
func extractIntake(raw []byte) (intake, error) {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return intake{}, errors.New("payload is not a JSON object")
	}

	var in intake
	if issue := doc.Get("issue"); issue.Exists() {
		in = intake{
			IssueKey:    issue.Get("key").String(),
			Summary:     issue.Get("fields.summary").String(),
			RequestType: issue.Get(requestTypePath).String(),
		}
		if desc := issue.Get("fields.description"); desc.Exists() {
			// Descriptions arrive as ADF documents or plain strings
			in.Description = tracker.FlattenDoc([]byte(desc.Raw))
		}
	} else {
		in = intake{
			IssueKey:    doc.Get("issueKey").String(),
			Summary:     doc.Get("summary").String(),
			Description: doc.Get("description").String(),
			RequestType: doc.Get("requestType").String(),
		}
	}

	if in.IssueKey == "" {
		return intake{}, errors.New("payload has no issue key")
	}

	return in, nil
}
