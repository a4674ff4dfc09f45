package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	GithubToken       string        `mapstructure:"github_token"`
	GithubAPIURL      string        `mapstructure:"github_api_url"`
	CurrentRef        string        `mapstructure:"current_ref"`
	IntegrationBranch string        `mapstructure:"integration_branch"`
	MergePattern      string        `mapstructure:"merge_pattern"`
	ManifestName      string        `mapstructure:"manifest_name"`
	CommitMessage     string        `mapstructure:"commit_message"`
	WorkingDir        string        `mapstructure:"working_dir"`
	RemoteName        string        `mapstructure:"remote_name"`
	NpmBin            string        `mapstructure:"npm_bin"`
	LogLevel          string        `mapstructure:"log_level"`
	WorkflowTimeout   time.Duration `mapstructure:"workflow_timeout"`
	LockTimeout       time.Duration `mapstructure:"lock_timeout"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		CurrentRef:        domain.DefaultRef,
		IntegrationBranch: domain.DefaultIntegrationBranch,
		ManifestName:      domain.ManifestFileName,
		CommitMessage:     "New release: %s",
		WorkingDir:        ".",
		RemoteName:        "origin",
		NpmBin:            "npm",
		LogLevel:          "info",
		WorkflowTimeout:   30 * time.Minute,
		LockTimeout:       30 * time.Second,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// GitHub token is optional, public repositories can be read anonymously
	if c.GithubToken != "" {
		if err := ValidateGitHubToken(c.GithubToken); err != nil {
			return fmt.Errorf("invalid github_token: %w", err)
		}
	}
	if c.CurrentRef == "" {
		return fmt.Errorf("current_ref cannot be empty")
	}
	if c.IntegrationBranch == "" {
		return fmt.Errorf("integration_branch cannot be empty")
	}
	if c.MergePattern != "" {
		if _, err := regexp.Compile(c.MergePattern); err != nil {
			return fmt.Errorf("invalid merge_pattern: %w", err)
		}
	}
	// The manifest must be a plain file name looked up inside each module directory
	if c.ManifestName == "" || filepath.Base(c.ManifestName) != c.ManifestName {
		return fmt.Errorf("manifest_name must be a file name, got %q", c.ManifestName)
	}
	if !strings.Contains(c.CommitMessage, "%s") {
		return fmt.Errorf("commit_message must contain %%s for the new version")
	}
	if c.WorkingDir == "" {
		return fmt.Errorf("working_dir cannot be empty")
	}
	if c.RemoteName == "" {
		return fmt.Errorf("remote_name cannot be empty")
	}
	if c.NpmBin == "" {
		return fmt.Errorf("npm_bin cannot be empty")
	}
	if c.WorkflowTimeout <= 0 {
		return fmt.Errorf("workflow_timeout must be positive")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive")
	}
	return nil
}

// ValidateGitHubToken rejects tokens that cannot be sent in a header. Any
// other token is passed to the API as is.
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be blank")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("token contains whitespace")
	}
	return nil
}

var githubTokenFormats = []*regexp.Regexp{
	regexp.MustCompile(`^[a-fA-F0-9]{40}$`),
	regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`),
	regexp.MustCompile(`^gh[pousr]_[a-zA-Z0-9]{36,}$`),
}

// KnownGitHubTokenFormat reports whether token looks like a token GitHub issues.
func KnownGitHubTokenFormat(token string) bool {
	token = strings.TrimSpace(token)
	for _, format := range githubTokenFormats {
		if format.MatchString(token) {
			return true
		}
	}
	return false
}

// ValidateGitHubOwnerRepo validates GitHub owner and repository names (exported for reuse)
func ValidateGitHubOwnerRepo(owner, repo string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	validName := regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	if !validName.MatchString(owner) {
		return fmt.Errorf("invalid owner format: %s", owner)
	}
	if len(owner) > 39 {
		return fmt.Errorf("owner too long: maximum 39 characters")
	}
	if !validName.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %s", repo)
	}
	if len(repo) > 100 {
		return fmt.Errorf("repository too long: maximum 100 characters")
	}
	return nil
}

// LoadConfig reads .monorelease.yaml from the given directories (the current
// directory when none are given), then the environment.
func LoadConfig(configPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".monorelease")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{"."}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	// Configure environment variables
	v.SetEnvPrefix("MONORELEASE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// BindEnv allows multiple env vars - it will check them in order
	bindings := map[string][]string{
		"github_token": {"GITHUB_TOKEN", "MONORELEASE_GITHUB_TOKEN"},
		"current_ref":  {"CURRENT_REF", "MONORELEASE_CURRENT_REF"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("current_ref", defaults.CurrentRef)
	v.SetDefault("integration_branch", defaults.IntegrationBranch)
	v.SetDefault("merge_pattern", defaults.MergePattern)
	v.SetDefault("manifest_name", defaults.ManifestName)
	v.SetDefault("commit_message", defaults.CommitMessage)
	v.SetDefault("working_dir", defaults.WorkingDir)
	v.SetDefault("remote_name", defaults.RemoteName)
	v.SetDefault("npm_bin", defaults.NpmBin)
	v.SetDefault("github_api_url", defaults.GithubAPIURL)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("workflow_timeout", defaults.WorkflowTimeout)
	v.SetDefault("lock_timeout", defaults.LockTimeout)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.GithubToken = strings.TrimSpace(config.GithubToken)
	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}
