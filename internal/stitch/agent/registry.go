// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tmc/langchaingo/llms"

	"github.com/kusari-oss/stitch/internal/core/gate"
	"github.com/kusari-oss/stitch/internal/stitch/executor"
	"github.com/kusari-oss/stitch/internal/stitch/planner"
	"github.com/kusari-oss/stitch/internal/stitch/report"
	"github.com/kusari-oss/stitch/internal/stitch/tracker"
)

// Context provides the shared collaborators agents are built from
type Context struct {
	Caller      tracker.Caller
	Model       llms.Model
	Sink        report.Sink
	GlobalRules []gate.Rule
	Logger      *slog.Logger
}

// Registry holds the loaded profiles and builds agents on demand
type Registry struct {
	profiles map[string]Profile
	context  Context
}

// NewRegistry creates an empty registry with the given context
func NewRegistry(context Context) *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
		context:  context,
	}
}

// Register adds a profile, replacing any previous one with the same name
func (r *Registry) Register(profile Profile) {
	r.profiles[profile.Name] = profile
}

// Get looks up a profile by name
func (r *Registry) Get(name string) (Profile, bool) {
	profile, ok := r.profiles[name]
	return profile, ok
}

// Names returns the registered profile names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a ready-to-run agent for the named profile. The profile's
// own safety rules stack on top of the registry's global ones; they can
// only add blocks, never lift them.
func (r *Registry) Create(name string) (*Agent, error) {
	profile, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s", name)
	}

	rules := append([]gate.Rule{}, r.context.GlobalRules...)
	rules = append(rules, profile.Rules...)

	g, err := gate.New(gate.Config{
		DestructiveMethods: profile.DestructiveMethods,
		Rules:              rules,
	})
	if err != nil {
		return nil, fmt.Errorf("error compiling safety rules for agent %s: %w", name, err)
	}

	gen := planner.NewLLMPlanner(r.context.Model, profile.Prompt, r.context.Logger)
	runner := executor.NewRunner(r.context.Caller, g, r.context.Logger)

	return New(profile, gen, runner, r.context.Sink, r.context.Logger), nil
}
