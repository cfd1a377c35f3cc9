// SPDX-License-Identifier: Apache-2.0

// Package agent ties the pieces of one configured agent together: its
// profile, its planner prompt, its safety posture, and where its results go.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kusari-oss/stitch/internal/core/config"
	"github.com/kusari-oss/stitch/internal/core/format"
	"github.com/kusari-oss/stitch/internal/core/gate"
)

// Profile describes one configured agent: what it tells the planner and
// which safety posture its runs get.
type Profile struct {
	Name               string      `json:"name" yaml:"name"`
	Description        string      `json:"description" yaml:"description"`
	Prompt             string      `json:"prompt" yaml:"prompt"`
	DestructiveMethods []string    `json:"destructive_methods,omitempty" yaml:"destructive_methods,omitempty"`
	Rules              []gate.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// LoadProfiles loads all agent profiles from the appropriate directories
// based on the configuration settings
func LoadProfiles(cfg *config.Config, projectDir string) (map[string]Profile, error) {
	profiles := make(map[string]Profile)

	// Load global profiles if enabled
	if cfg.UseGlobal {
		globalAgentsDir := filepath.Join(cfg.LibraryPath, cfg.AgentsDir)
		globalProfiles, err := loadProfilesFromDir(globalAgentsDir)
		if err == nil {
			for name, profile := range globalProfiles {
				profiles[name] = profile
			}
		}
	}

	// Load local profiles if enabled
	if cfg.UseLocal {
		localAgentsDir := filepath.Join(projectDir, cfg.AgentsDir)
		localProfiles, err := loadProfilesFromDir(localAgentsDir)
		if err == nil {
			for name, profile := range localProfiles {
				// If global takes precedence and we already have this
				// profile, skip
				if cfg.GlobalFirst && cfg.UseGlobal {
					if _, exists := profiles[name]; exists {
						continue
					}
				}
				profiles[name] = profile
			}
		}
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("no agent profiles found in configured directories")
	}

	return profiles, nil
}

// LoadRules gathers global safety rules from the config file and the
// configured rule directories. Unlike profiles, rules from every source
// stack; a rule can only add a block, so there is nothing to override.
// A rules file that fails to parse fails the whole load rather than being
// skipped.
func LoadRules(cfg *config.Config, projectDir string) ([]gate.Rule, error) {
	rules := append([]gate.Rule{}, cfg.Safety.Rules...)

	if cfg.UseGlobal {
		globalRules, err := gate.LoadRulesDir(filepath.Join(cfg.LibraryPath, cfg.RulesDir))
		if err != nil {
			return nil, err
		}
		rules = append(rules, globalRules...)
	}

	if cfg.UseLocal {
		localRules, err := gate.LoadRulesDir(filepath.Join(projectDir, cfg.RulesDir))
		if err != nil {
			return nil, err
		}
		rules = append(rules, localRules...)
	}

	return rules, nil
}

// loadProfilesFromDir loads profiles from a specific directory
func loadProfilesFromDir(agentsDir string) (map[string]Profile, error) {
	profiles := make(map[string]Profile)

	// Check if directory exists
	if _, err := os.Stat(agentsDir); os.IsNotExist(err) {
		return profiles, nil // Return empty map if directory doesn't exist
	}

	err := filepath.Walk(agentsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories and non-yaml files
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".yaml") {
			return nil
		}

		var profile Profile
		if err := format.ParseFile(path, &profile); err != nil {
			return fmt.Errorf("error parsing agent profile %s: %w", path, err)
		}

		// If no name is specified, use the filename (without extension)
		if profile.Name == "" {
			profile.Name = strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))
		}

		profiles[profile.Name] = profile
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error loading agent profiles: %w", err)
	}

	return profiles, nil
}
