// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kusari-oss/stitch/internal/core/gate"
	"github.com/kusari-oss/stitch/internal/core/library"
)

// Constants for default paths
const (
	DefaultConfigDir      = ".stitch"
	DefaultGlobalLibrary  = "~/.stitch/library"
	DefaultConfigFileName = "config.yaml"
	DefaultStateFileName  = "state.yaml"

	// DefaultWebhookSecret is a placeholder that must be replaced before a
	// production deployment.
	DefaultWebhookSecret = "changeme"

	EnvProduction = "production"
)

// Config holds the global application configuration
type Config struct {
	// Library layout
	AgentsDir string `yaml:"agents_dir"`
	RulesDir  string `yaml:"rules_dir"`

	// Library-related configuration
	LibraryPath        string `yaml:"library_path"`
	CmdLineLibraryPath string `yaml:"-"` // Exclude from YAML marshalling
	UseGlobal          bool   `yaml:"use_global"`
	UseLocal           bool   `yaml:"use_local"`
	GlobalFirst        bool   `yaml:"global_first"`

	Tracker Tracker `yaml:"tracker"`
	Safety  Safety  `yaml:"safety"`
	Planner Planner `yaml:"planner"`
	Server  Server  `yaml:"server"`

	LogLevel string `yaml:"log_level"`

	// Runtime library manager
	LibraryManager *library.Manager `yaml:"-"`
}

// Tracker configures the REST API the executor calls. Credentials come from
// the environment, never from the config file.
type Tracker struct {
	BaseURL        string  `yaml:"base_url"`
	Email          string  `yaml:"email"`
	APIToken       string  `yaml:"-"`
	BearerToken    string  `yaml:"-"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst"`
}

// Safety configures the pre-execution gate.
type Safety struct {
	DestructiveMethods []string    `yaml:"destructive_methods"`
	Rules              []gate.Rule `yaml:"rules"`
}

// Planner configures the model that turns requests into plans.
type Planner struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	OllamaURL    string `yaml:"ollama_url"`
	OpenAIAPIKey string `yaml:"-"`
}

// Server configures the webhook daemon.
type Server struct {
	Port          int    `yaml:"port"`
	Environment   string `yaml:"environment"`
	WebhookSecret string `yaml:"-"`
	Workers       int    `yaml:"workers"`
	QueueSize     int    `yaml:"queue_size"`
}

// State holds the runtime state of stitch
type State struct {
	ProjectDir    string `yaml:"project_dir"`    // Current project directory
	LibraryInUse  string `yaml:"library_in_use"` // Path to the library currently in use
	LastUpdated   string `yaml:"last_updated"`   // When the library was last updated
	InitializedAt string `yaml:"initialized_at"` // When the project was initialized
	Version       string `yaml:"version"`        // Version of stitch used
}

// NewDefaultConfig creates a default configuration
func NewDefaultConfig() *Config {
	return &Config{
		AgentsDir:   "agents",
		RulesDir:    "rules",
		LibraryPath: ExpandPathWithTilde(DefaultGlobalLibrary),
		UseGlobal:   true,
		UseLocal:    false,
		GlobalFirst: true,
		Tracker: Tracker{
			TimeoutSeconds: 30,
			RateLimit:      5,
			RateBurst:      10,
		},
		Planner: Planner{
			Provider:  "ollama",
			Model:     "llama3.1",
			OllamaURL: "http://localhost:11434",
		},
		Server: Server{
			Port:          8080,
			Environment:   "development",
			WebhookSecret: DefaultWebhookSecret,
			Workers:       4,
			QueueSize:     64,
		},
		LogLevel: "info",
	}
}

// NewState creates a new state object with the current project directory
func NewState(projectDir, version string) *State {
	now := time.Now().Format(time.RFC3339)
	return &State{
		ProjectDir:    projectDir,
		LibraryInUse:  ExpandPathWithTilde(DefaultGlobalLibrary),
		LastUpdated:   now,
		InitializedAt: now,
		Version:       version,
	}
}

// ExpandPathWithTilde expands ~ to user home directory
// It respects the STITCH_HOME environment variable for testing purposes.
func ExpandPathWithTilde(path string) string {
	if path == "~" {
		home := getHomeDir()
		if home == "" {
			return path // Return original if can't expand
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home := getHomeDir()
		if home == "" {
			return path // Return original if can't expand
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// getHomeDir returns the home directory, respecting STITCH_HOME for testing
func getHomeDir() string {
	if stitchHome := os.Getenv("STITCH_HOME"); stitchHome != "" {
		return stitchHome
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "" // Return empty if can't determine
	}
	return home
}

// GlobalConfigFilePath returns the absolute path to the global stitch config file.
// It respects the STITCH_HOME environment variable for testing purposes.
func GlobalConfigFilePath() (string, error) {
	var home string

	if stitchHome := os.Getenv("STITCH_HOME"); stitchHome != "" {
		home = stitchHome
	} else {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
	}

	return filepath.Join(home, DefaultConfigDir, DefaultConfigFileName), nil
}

// LoadConfig loads the application configuration.
// It starts with default settings, merges settings from a global configuration
// file, then overlays environment variables. A command-line provided library
// path overrides any library path found in the configuration files.
// The globalConfigPathOverride parameter allows specifying a custom path for
// the global config file, primarily for testing. If empty, the default global
// config path (e.g., ~/.stitch/config.yaml) is used.
func LoadConfig(cmdLineLibraryPath string, globalConfigPathOverride string) (*Config, error) {
	config := NewDefaultConfig()

	// Determine global config path
	var globalConfigPath string
	var err error
	if globalConfigPathOverride != "" {
		globalConfigPath = ExpandPathWithTilde(globalConfigPathOverride)
	} else {
		globalConfigPath, err = GlobalConfigFilePath()
		if err != nil {
			fmt.Printf("Warning: could not determine global config path: %v\n", err)
			globalConfigPath = ""
		}
	}

	// Try to load global config
	globalConfig, err := LoadConfigFile(globalConfigPath)
	if err == nil {
		mergeConfigs(config, globalConfig)
	} else if !os.IsNotExist(err) && globalConfigPath != "" {
		fmt.Printf("Warning: could not load global config file '%s': %v\n", globalConfigPath, err)
	}

	applyEnv(config)

	// Override with command-line library path if provided
	if cmdLineLibraryPath != "" {
		config.LibraryPath = ExpandPathWithTilde(cmdLineLibraryPath)
		config.CmdLineLibraryPath = ExpandPathWithTilde(cmdLineLibraryPath)
	}

	config.LibraryManager = library.NewManager(config.LibraryPath, config.CmdLineLibraryPath, false)

	return config, nil
}

// LoadConfigFile loads a configuration from a specific file path
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// mergeConfigs merges source config into target config
// Only non-zero values from source override target
func mergeConfigs(target, source *Config) {
	if source.AgentsDir != "" {
		target.AgentsDir = source.AgentsDir
	}
	if source.RulesDir != "" {
		target.RulesDir = source.RulesDir
	}
	if source.LibraryPath != "" {
		target.LibraryPath = ExpandPathWithTilde(source.LibraryPath)
	}
	if source.Tracker.BaseURL != "" {
		target.Tracker.BaseURL = source.Tracker.BaseURL
	}
	if source.Tracker.Email != "" {
		target.Tracker.Email = source.Tracker.Email
	}
	if source.Tracker.TimeoutSeconds > 0 {
		target.Tracker.TimeoutSeconds = source.Tracker.TimeoutSeconds
	}
	if source.Tracker.RateLimit > 0 {
		target.Tracker.RateLimit = source.Tracker.RateLimit
	}
	if source.Tracker.RateBurst > 0 {
		target.Tracker.RateBurst = source.Tracker.RateBurst
	}
	if len(source.Safety.DestructiveMethods) > 0 {
		target.Safety.DestructiveMethods = source.Safety.DestructiveMethods
	}
	if len(source.Safety.Rules) > 0 {
		target.Safety.Rules = source.Safety.Rules
	}
	if source.Planner.Provider != "" {
		target.Planner.Provider = source.Planner.Provider
	}
	if source.Planner.Model != "" {
		target.Planner.Model = source.Planner.Model
	}
	if source.Planner.OllamaURL != "" {
		target.Planner.OllamaURL = source.Planner.OllamaURL
	}
	if source.Server.Port > 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.Environment != "" {
		target.Server.Environment = source.Server.Environment
	}
	if source.Server.Workers > 0 {
		target.Server.Workers = source.Server.Workers
	}
	if source.Server.QueueSize > 0 {
		target.Server.QueueSize = source.Server.QueueSize
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	// Boolean fields - only override if they're explicitly set in the source
	// This isn't perfect since there's no way to tell from the parsed struct
	// if they were omitted, but it's a reasonable approach for this use case
	target.UseGlobal = source.UseGlobal
	target.UseLocal = source.UseLocal
	target.GlobalFirst = source.GlobalFirst
}

// applyEnv overlays environment variables onto the configuration. Credentials
// are only ever read from the environment.
func applyEnv(config *Config) {
	if v := os.Getenv("TRACKER_BASE_URL"); v != "" {
		config.Tracker.BaseURL = v
	}
	if v := os.Getenv("TRACKER_EMAIL"); v != "" {
		config.Tracker.Email = v
	}
	if v := os.Getenv("TRACKER_API_TOKEN"); v != "" {
		config.Tracker.APIToken = v
	} else if v := os.Getenv("TRACKER_TOKEN"); v != "" {
		fmt.Printf("Warning: TRACKER_TOKEN is deprecated, use TRACKER_API_TOKEN instead\n")
		config.Tracker.APIToken = v
	}
	if v := os.Getenv("TRACKER_BEARER_TOKEN"); v != "" {
		config.Tracker.BearerToken = v
	}
	if v := os.Getenv("PLANNER_PROVIDER"); v != "" {
		config.Planner.Provider = v
	}
	if v := os.Getenv("PLANNER_MODEL"); v != "" {
		config.Planner.Model = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		config.Planner.OllamaURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.Planner.OpenAIAPIKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		config.Server.WebhookSecret = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		config.Server.Environment = v
	}
	if v := os.Getenv("STITCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		} else {
			fmt.Printf("Warning: invalid STITCH_PORT value '%s': %v\n", v, err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

// Validate checks the configuration for settings that are unsafe or unusable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.IsProduction() && c.Server.WebhookSecret == DefaultWebhookSecret {
		return fmt.Errorf("WEBHOOK_SECRET must be set when ENVIRONMENT is %s", EnvProduction)
	}
	if c.Tracker.RateLimit < 0 {
		return fmt.Errorf("tracker rate limit cannot be negative")
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, EnvProduction)
}

// SaveConfig saves the configuration to the specified directory (typically for project-local configs)
func SaveConfig(config *Config, dir string) error {
	configDir := filepath.Join(dir, DefaultConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory '%s': %w", configDir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFileName)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file '%s': %w", configPath, err)
	}

	return nil
}

// SaveGlobalConfig saves the provided configuration to the user's global stitch config path.
func SaveGlobalConfig(config *Config) error {
	globalPath, err := GlobalConfigFilePath()
	if err != nil {
		return fmt.Errorf("could not determine global config path for saving: %w", err)
	}

	globalDir := filepath.Dir(globalPath)
	if err := os.MkdirAll(globalDir, 0755); err != nil {
		return fmt.Errorf("error creating global config directory '%s': %w", globalDir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling global config: %w", err)
	}

	if err := os.WriteFile(globalPath, data, 0644); err != nil {
		return fmt.Errorf("error writing global config file '%s': %w", globalPath, err)
	}

	return nil
}

// SaveState saves the state to the specified directory
func SaveState(state *State, dir string) error {
	configDir := filepath.Join(dir, DefaultConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}

	statePath := filepath.Join(configDir, DefaultStateFileName)
	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return fmt.Errorf("error writing state file: %w", err)
	}

	return nil
}

// LoadState loads the state from the specified directory
func LoadState(dir string) (*State, error) {
	statePath := filepath.Join(dir, DefaultConfigDir, DefaultStateFileName)

	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, err
	}

	state := &State{}
	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("error parsing state file: %w", err)
	}

	return state, nil
}

// GetLibraryInfo resolves and validates the library path using the library manager
func (c *Config) GetLibraryInfo() (*library.Info, error) {
	if c.LibraryManager == nil {
		c.LibraryManager = library.NewManager(c.LibraryPath, c.CmdLineLibraryPath, false)
	}
	return c.LibraryManager.ResolveLibraryPath()
}

// SetVerboseLibraryLogging enables verbose logging for library operations
func (c *Config) SetVerboseLibraryLogging(verbose bool) {
	c.LibraryManager = library.NewManager(c.LibraryPath, c.CmdLineLibraryPath, verbose)
}

// ValidateLibrarySetup validates that the configured library is usable
func (c *Config) ValidateLibrarySetup() error {
	info, err := c.GetLibraryInfo()
	if err != nil {
		return fmt.Errorf("library validation failed: %w", err)
	}

	if !info.Valid {
		return fmt.Errorf("library at %s is not valid: %s", info.Path, strings.Join(info.Errors, ", "))
	}

	return nil
}

// GetLibraryDiagnostics returns diagnostic information about the library system
func (c *Config) GetLibraryDiagnostics() map[string]interface{} {
	if c.LibraryManager == nil {
		c.LibraryManager = library.NewManager(c.LibraryPath, c.CmdLineLibraryPath, false)
	}
	return c.LibraryManager.GetDiagnostics()
}
