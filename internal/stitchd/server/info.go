// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kusari-oss/stitch/internal/core/logging"
	"github.com/kusari-oss/stitch/internal/stitch/agent"
)

type agentInfo struct {
	Endpoint    string `json:"endpoint"`
	Description string `json:"description"`
}

type rootResponse struct {
	Service string               `json:"service"`
	Version string               `json:"version"`
	Agents  map[string]agentInfo `json:"available_agents"`
}

type healthResponse struct {
	Status       string   `json:"status"`
	Version      string   `json:"version"`
	ActiveAgents int      `json:"active_agents"`
	AgentList    []string `json:"agent_list"`
	QueueSize    int      `json:"queue_size"`
	Tracker      string   `json:"tracker_status"`
	Model        string   `json:"model"`
	Environment  string   `json:"environment"`
}

type testResponse struct {
	Test    string      `json:"test"`
	State   string      `json:"state"`
	Summary string      `json:"summary"`
	Result  interface{} `json:"result"`
}

func (s *Server) handleRoot(c *gin.Context) {
	agents := make(map[string]agentInfo)
	for _, name := range s.registry.Names() {
		profile, _ := s.registry.Get(name)
		agents[name] = agentInfo{
			Endpoint:    "/agents/" + name,
			Description: profile.Description,
		}
	}

	c.JSON(http.StatusOK, rootResponse{
		Service: "stitch",
		Version: s.version,
		Agents:  agents,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	trackerStatus := "not_configured"
	if s.cfg.Tracker.BaseURL != "" {
		trackerStatus = "configured"
	}

	environment := s.cfg.Server.Environment
	if environment == "" {
		environment = "development"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:       "healthy",
		Version:      s.version,
		ActiveAgents: len(s.registry.Names()),
		AgentList:    s.registry.Names(),
		QueueSize:    s.pool.QueueDepth(),
		Tracker:      trackerStatus,
		Model:        s.cfg.Planner.Model,
		Environment:  environment,
	})
}

// handleTest runs an agent synchronously against a canned request. It does
// not exist in production.
func (s *Server) handleTest(c *gin.Context) {
	if s.cfg.IsProduction() {
		c.JSON(http.StatusNotFound, errorResponse{
			Error:  "not found",
			Status: http.StatusNotFound,
		})
		return
	}

	name := c.Param("agent")
	a, err := s.registry.Create(name)
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{
			Error:           fmt.Sprintf("unknown agent: %s", name),
			Status:          http.StatusNotFound,
			AvailableAgents: s.registry.Names(),
		})
		return
	}

	outcome, err := a.Process(c.Request.Context(), agent.Request{
		Target:      "TEST-123",
		Summary:     "Test request for agent verification",
		Description: "Verify the planning and execution pipeline works end to end.",
	})
	if err != nil {
		s.logger.Error("test run failed", logging.Agent(name), logging.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:  fmt.Sprintf("test run failed: %v", err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, testResponse{
		Test:    name,
		State:   string(outcome.Result.State),
		Summary: outcome.Summary,
		Result:  outcome.Result,
	})
}
