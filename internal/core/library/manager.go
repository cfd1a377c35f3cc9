// SPDX-License-Identifier: Apache-2.0

package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager provides robust library path resolution and validation
type Manager struct {
	// Configuration
	globalLibraryPath  string
	cmdLineLibraryPath string
	verboseLogging     bool
}

// Info contains information about a resolved library
type Info struct {
	Path      string
	Source    string // "cmdline", "config", "default", "env"
	AgentsDir string
	RulesDir  string
	Exists    bool
	Valid     bool
	Errors    []string
}

// NewManager creates a new library manager
func NewManager(globalLibraryPath, cmdLineLibraryPath string, verbose bool) *Manager {
	return &Manager{
		globalLibraryPath:  globalLibraryPath,
		cmdLineLibraryPath: cmdLineLibraryPath,
		verboseLogging:     verbose,
	}
}

// ResolveLibraryPath determines the library path using clear precedence rules
func (m *Manager) ResolveLibraryPath() (*Info, error) {
	// Precedence order (highest to lowest):
	// 1. Command line flag (--library-path)
	// 2. STITCH_HOME environment variable (for testing)
	// 3. Global config file setting
	// 4. Default global library path

	candidates := []struct {
		path   string
		source string
		desc   string
	}{
		{m.cmdLineLibraryPath, "cmdline", "command line --library-path flag"},
		{envLibraryPath(), "env", "STITCH_HOME environment variable"},
		{m.globalLibraryPath, "config", "global configuration file"},
		{expandPath("~/.stitch/library"), "default", "default global library"},
	}

	var lastInfo *Info
	var errors []string

	for _, candidate := range candidates {
		if candidate.path == "" {
			continue
		}

		expandedPath := expandPath(candidate.path)
		if m.verboseLogging {
			fmt.Printf("Checking library path from %s: %s\n", candidate.desc, expandedPath)
		}

		info := m.validateLibraryPath(expandedPath, candidate.source)
		lastInfo = info

		if info.Valid {
			if m.verboseLogging {
				fmt.Printf("✓ Using library from %s: %s\n", candidate.desc, expandedPath)
			}
			return info, nil
		}

		errorMsg := fmt.Sprintf("%s (%s): %s", candidate.desc, expandedPath, strings.Join(info.Errors, ", "))
		errors = append(errors, errorMsg)

		if m.verboseLogging {
			fmt.Printf("✗ Invalid library at %s: %s\n", expandedPath, strings.Join(info.Errors, ", "))
		}
	}

	// If we get here, no valid library was found
	if lastInfo != nil {
		lastInfo.Errors = errors
		return lastInfo, fmt.Errorf("no valid library found. Tried:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil, fmt.Errorf("no library paths configured")
}

// validateLibraryPath validates that a library path exists and has required structure
func (m *Manager) validateLibraryPath(path, source string) *Info {
	info := &Info{
		Path:      path,
		Source:    source,
		AgentsDir: filepath.Join(path, "agents"),
		RulesDir:  filepath.Join(path, "rules"),
		Exists:    false,
		Valid:     false,
		Errors:    []string{},
	}

	// Check if main path exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		info.Errors = append(info.Errors, "library directory does not exist")
		return info
	}
	info.Exists = true

	// Check required subdirectories
	requiredDirs := map[string]string{
		"agents": info.AgentsDir,
		"rules":  info.RulesDir,
	}

	missingDirs := []string{}
	for name, dirPath := range requiredDirs {
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			missingDirs = append(missingDirs, name)
		}
	}

	if len(missingDirs) > 0 {
		info.Errors = append(info.Errors, fmt.Sprintf("missing required subdirectories: %s", strings.Join(missingDirs, ", ")))
		return info
	}

	// Check if we can read from the directories
	for name, dirPath := range requiredDirs {
		if !isReadable(dirPath) {
			info.Errors = append(info.Errors, fmt.Sprintf("cannot read %s directory: %s", name, dirPath))
			return info
		}
	}

	info.Valid = true
	return info
}

// CreateLibraryStructure creates a new library structure at the given path
func (m *Manager) CreateLibraryStructure(path string) error {
	expandedPath := expandPath(path)

	if m.verboseLogging {
		fmt.Printf("Creating library structure at: %s\n", expandedPath)
	}

	// Create main directory
	if err := os.MkdirAll(expandedPath, 0755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	// Create required subdirectories
	subdirs := []string{"agents", "rules"}
	for _, subdir := range subdirs {
		subdirPath := filepath.Join(expandedPath, subdir)
		if err := os.MkdirAll(subdirPath, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
		if m.verboseLogging {
			fmt.Printf("Created directory: %s\n", subdirPath)
		}
	}

	return nil
}

// ListAvailableAgents returns a list of available agent profiles in the library
func (m *Manager) ListAvailableAgents(libraryPath string) ([]string, error) {
	agentsDir := filepath.Join(libraryPath, "agents")

	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents directory: %w", err)
	}

	var agents []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			// Remove .yaml extension
			agentName := strings.TrimSuffix(entry.Name(), ".yaml")
			agents = append(agents, agentName)
		}
	}

	return agents, nil
}

// envLibraryPath returns the library path implied by STITCH_HOME, if set.
func envLibraryPath() string {
	if stitchHome := os.Getenv("STITCH_HOME"); stitchHome != "" {
		return filepath.Join(stitchHome, ".stitch", "library")
	}
	return ""
}

// expandPath expands ~ to home directory and handles STITCH_HOME for testing
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	// Handle STITCH_HOME environment variable for testing
	if stitchHome := os.Getenv("STITCH_HOME"); stitchHome != "" {
		if path == "~" || path == "~/" {
			return stitchHome
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(stitchHome, path[2:])
		}
	}

	// Standard home directory expansion
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			// Return original path if we can't expand
			return path
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// isReadable checks if a directory is readable
func isReadable(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	// Try to read the directory
	_, err = file.Readdir(1)
	// EOF is expected for empty directories
	return err == nil || err.Error() == "EOF"
}

// GetDiagnostics returns diagnostic information about the library system
func (m *Manager) GetDiagnostics() map[string]interface{} {
	diagnostics := make(map[string]interface{})

	diagnostics["cmdline_library_path"] = m.cmdLineLibraryPath
	diagnostics["global_library_path"] = m.globalLibraryPath
	diagnostics["stitch_home"] = os.Getenv("STITCH_HOME")

	if home, err := os.UserHomeDir(); err == nil {
		diagnostics["user_home"] = home
	} else {
		diagnostics["user_home_error"] = err.Error()
	}

	// Test library resolution
	if info, err := m.ResolveLibraryPath(); err == nil {
		diagnostics["resolved_library"] = map[string]interface{}{
			"path":   info.Path,
			"source": info.Source,
			"valid":  info.Valid,
			"exists": info.Exists,
			"errors": info.Errors,
		}
	} else {
		diagnostics["resolution_error"] = err.Error()
	}

	return diagnostics
}
