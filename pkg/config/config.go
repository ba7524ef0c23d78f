package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultMaxRetries          = 3
	DefaultMaxWaitSeconds      = 30
	DefaultHTTPTimeoutSeconds  = 30
	DefaultLanguage            = "en"
	DefaultRouterType          = "BYPASS"
)

// DefaultPIICategories is the entity allowlist used when none is
// configured.
var DefaultPIICategories = []string{
	"Person", "Email", "PhoneNumber", "Address", "CreditCardNumber", "NumericIdentifier",
}

// ProjectConfig identifies a deployed backend project and the
// confidence threshold applied to its predictions.
type ProjectConfig struct {
	ProjectName         string  `yaml:"project_name"`
	DeploymentName      string  `yaml:"deployment_name"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// RouterConfig selects the routing strategy and its backend projects.
type RouterConfig struct {
	Type          string        `yaml:"type"`
	CLU           ProjectConfig `yaml:"clu"`
	CQA           ProjectConfig `yaml:"cqa"`
	Orchestration ProjectConfig `yaml:"orchestration"`
}

// LanguageConfig holds the language service connection settings.
type LanguageConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// PIIConfig controls utterance redaction.
type PIIConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Categories          []string `yaml:"categories"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
}

// RetryConfig bounds the HTTP retry loop.
type RetryConfig struct {
	MaxRetries         int     `yaml:"max_retries"`
	MaxWaitSeconds     int     `yaml:"max_wait_seconds"`
	HTTPTimeoutSeconds float64 `yaml:"http_timeout_seconds"`
}

// ChatConfig selects the chat provider used for the fallback path and
// the LLM-delegated routers.
type ChatConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Config holds the application configuration.
type Config struct {
	Language        LanguageConfig
	Router          RouterConfig
	PII             PIIConfig
	Retry           RetryConfig
	Chat            ChatConfig
	DefaultLanguage string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	ConfigDir       string
}

// FileConfig represents the structure of ~/.dialogate/config.yaml
type FileConfig struct {
	Language        LanguageConfig `yaml:"language"`
	Router          RouterConfig   `yaml:"router"`
	PII             PIIConfig      `yaml:"pii"`
	Retry           RetryConfig    `yaml:"retry"`
	Chat            ChatConfig     `yaml:"chat"`
	DefaultLanguage string         `yaml:"default_language"`
	APIKeys         APIKeysConfig  `yaml:"api_keys"`
}

// APIKeysConfig holds chat provider API keys from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// Load reads configuration from the config file and environment
// variables. Environment variables take precedence over file values.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return LoadWithFile(filepath.Join(configDir, "config.yaml"))
}

// LoadWithFile loads config from a specific yaml file, still applying
// environment overrides and defaults.
func LoadWithFile(path string) (*Config, error) {
	fileConfig := loadFileConfig(path)

	cfg := &Config{
		Language: LanguageConfig{
			Endpoint: getEnvOrDefault("LANGUAGE_ENDPOINT", fileConfig.Language.Endpoint),
			APIKey:   getEnvOrDefault("LANGUAGE_API_KEY", fileConfig.Language.APIKey),
		},
		Router: RouterConfig{
			Type:          getEnvOrDefault("ROUTER_TYPE", fileConfig.Router.Type),
			CLU:           projectFromEnv("CLU", fileConfig.Router.CLU),
			CQA:           projectFromEnv("CQA", fileConfig.Router.CQA),
			Orchestration: projectFromEnv("ORCHESTRATION", fileConfig.Router.Orchestration),
		},
		PII: PIIConfig{
			Enabled:             getEnvBool("PII_ENABLED", fileConfig.PII.Enabled),
			Categories:          getEnvList("PII_CATEGORIES", fileConfig.PII.Categories),
			ConfidenceThreshold: getEnvFloat("PII_CONFIDENCE_THRESHOLD", fileConfig.PII.ConfidenceThreshold),
		},
		Retry: RetryConfig{
			MaxRetries:         getEnvInt("MAX_RETRIES", fileConfig.Retry.MaxRetries),
			MaxWaitSeconds:     getEnvInt("MAX_WAIT_SECONDS", fileConfig.Retry.MaxWaitSeconds),
			HTTPTimeoutSeconds: getEnvFloat("DEFAULT_HTTP_TIMEOUT", fileConfig.Retry.HTTPTimeoutSeconds),
		},
		Chat: ChatConfig{
			Provider: getEnvOrDefault("CHAT_PROVIDER", fileConfig.Chat.Provider),
			Model:    getEnvOrDefault("CHAT_MODEL", fileConfig.Chat.Model),
		},
		DefaultLanguage: getEnvOrDefault("DEFAULT_LANGUAGE", fileConfig.DefaultLanguage),
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		ConfigDir:       filepath.Dir(path),
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Router.Type == "" {
		cfg.Router.Type = DefaultRouterType
	}
	for _, p := range []*ProjectConfig{&cfg.Router.CLU, &cfg.Router.CQA, &cfg.Router.Orchestration} {
		if p.ConfidenceThreshold == 0 {
			p.ConfidenceThreshold = DefaultConfidenceThreshold
		}
	}
	if len(cfg.PII.Categories) == 0 {
		cfg.PII.Categories = DefaultPIICategories
	}
	if cfg.PII.ConfidenceThreshold == 0 {
		cfg.PII.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = DefaultMaxRetries
	}
	if cfg.Retry.MaxWaitSeconds == 0 {
		cfg.Retry.MaxWaitSeconds = DefaultMaxWaitSeconds
	}
	if cfg.Retry.HTTPTimeoutSeconds == 0 {
		cfg.Retry.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = DefaultLanguage
	}
}

// Validate checks bounds that would make the runtime misbehave rather
// than fail outright. Router type validity is checked where the router
// is built.
func (c *Config) Validate() error {
	for name, p := range map[string]ProjectConfig{
		"clu":           c.Router.CLU,
		"cqa":           c.Router.CQA,
		"orchestration": c.Router.Orchestration,
	} {
		if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
			return fmt.Errorf("%s confidence threshold %v out of range [0,1]", name, p.ConfidenceThreshold)
		}
	}
	if c.PII.ConfidenceThreshold < 0 || c.PII.ConfidenceThreshold > 1 {
		return fmt.Errorf("pii confidence threshold %v out of range [0,1]", c.PII.ConfidenceThreshold)
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.MaxWaitSeconds < 1 {
		return fmt.Errorf("max wait seconds must be at least 1, got %v", c.Retry.MaxWaitSeconds)
	}
	if c.Retry.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http timeout must be positive, got %v", c.Retry.HTTPTimeoutSeconds)
	}
	return nil
}

// HasChatProvider returns true if the API key for the given chat
// provider is configured.
func (c *Config) HasChatProvider(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	default:
		return false
	}
}

func projectFromEnv(prefix string, file ProjectConfig) ProjectConfig {
	return ProjectConfig{
		ProjectName:         getEnvOrDefault(prefix+"_PROJECT_NAME", file.ProjectName),
		DeploymentName:      getEnvOrDefault(prefix+"_DEPLOYMENT_NAME", file.DeploymentName),
		ConfidenceThreshold: getEnvFloat(prefix+"_CONFIDENCE_THRESHOLD", file.ConfidenceThreshold),
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getEnvFloat(envVar string, defaultValue float64) float64 {
	if val := os.Getenv(envVar); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(envVar string, defaultValue int) int {
	if val := os.Getenv(envVar); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(envVar string, defaultValue bool) bool {
	if val := os.Getenv(envVar); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(envVar string, defaultValue []string) []string {
	if val := os.Getenv(envVar); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".dialogate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
