package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"helperbot/internal/domain"
	"helperbot/internal/manual"
)

// ManualConfig locates the manual files the assistant answers from.
type ManualConfig struct {
	// Files are paths or glob patterns. When empty, Dataset under DataDir is used.
	Files   []string `yaml:"files,omitempty"`
	DataDir string   `yaml:"data_dir"`
	Dataset string   `yaml:"dataset,omitempty"`
	// Watch re-indexes the manual when its files change.
	Watch bool `yaml:"watch"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiEmbedderConfig holds configuration for the Gemini embedder.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	TaskType  string `yaml:"task_type"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// DocStoreConfig selects and configures the document store backend.
type DocStoreConfig struct {
	Type     string         `yaml:"type"`
	NResults int            `yaml:"n_results"`
	Chromem  *ChromemConfig `yaml:"chromem,omitempty"`
	Qdrant   *QdrantConfig  `yaml:"qdrant,omitempty"`
}

// ChromemConfig configures the embedded chromem store. An empty Dir keeps it in memory.
type ChromemConfig struct {
	Dir        string `yaml:"dir"`
	Collection string `yaml:"collection"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// CompletionConfig configures the chat completion service.
type CompletionConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// Timeout is the per-call deadline.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AssistantConfig tunes the answer pipeline.
type AssistantConfig struct {
	GreetingLabel     string `yaml:"greeting_label"`
	RetrievalFunction string `yaml:"retrieval_function"`
	// Strategy is "prompt" or "function_call".
	Strategy       string `yaml:"strategy"`
	CacheGateCalls bool   `yaml:"cache_gate_calls"`
}

// RedisConfig configures the Redis conversation log.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	TTLHours    int    `yaml:"ttl_hours"`
}

// HistoryConfig selects where conversations are persisted.
type HistoryConfig struct {
	Type       string       `yaml:"type"`
	MaxHistory int          `yaml:"max_history"`
	Dir        string       `yaml:"dir"`
	SQLitePath string       `yaml:"sqlite_path,omitempty"`
	Redis      *RedisConfig `yaml:"redis,omitempty"`
}

// PromptsConfig points at a directory of template overrides.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
	// File receives log output; empty means stderr.
	File string `yaml:"file,omitempty"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Manual     ManualConfig     `yaml:"manual"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	DocStore   DocStoreConfig   `yaml:"doc_store"`
	Completion CompletionConfig `yaml:"completion"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	History    HistoryConfig    `yaml:"history"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	Logging    LoggingConfig    `yaml:"logging"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
}

// ManualPaths returns the manual file patterns to load.
func (c *AppConfig) ManualPaths() []string {
	if len(c.Manual.Files) > 0 {
		return c.Manual.Files
	}
	if c.Manual.Dataset == "" {
		return nil
	}
	return []string{manual.ResolveDataset(c.Manual.DataDir, c.Manual.Dataset)}
}

// Validate rejects unknown backend types and non-positive bounds.
func (c *AppConfig) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown type %q", field, value))
	}
	check("embedder.type", c.Embedder.Type, "tfidf", "openai", "gemini")
	check("doc_store.type", c.DocStore.Type, "memory", "chromem", "qdrant")
	check("history.type", c.History.Type, "jsonl", "sqlite", "redis")
	check("assistant.strategy", c.Assistant.Strategy, "prompt", "function_call")
	check("logging.format", c.Logging.Format, "json", "console")
	check("summarizer.type", c.Summarizer.Type, "frequency")

	if c.DocStore.NResults <= 0 {
		errs = append(errs, errors.New("doc_store.n_results must be positive"))
	}
	if c.History.MaxHistory <= 0 {
		errs = append(errs, errors.New("history.max_history must be positive"))
	}
	if c.Completion.TimeoutSecs <= 0 {
		errs = append(errs, errors.New("completion.timeout_secs must be positive"))
	}
	if c.DocStore.Type == "qdrant" && (c.DocStore.Qdrant == nil || c.DocStore.Qdrant.URL == "") {
		errs = append(errs, errors.New("doc_store.qdrant.url is required"))
	}
	if c.History.Type == "redis" && (c.History.Redis == nil || c.History.Redis.Addr == "") {
		errs = append(errs, errors.New("history.redis.addr is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./helperbot.yaml first, then ~/.config/helperbot/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "helperbot.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "helperbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Manual:   ManualConfig{DataDir: "./data"},
		Embedder: EmbedderConfig{Type: "tfidf"},
		DocStore: DocStoreConfig{Type: "memory"},
		History:  HistoryConfig{Type: "jsonl"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Manual.DataDir == "" {
		cfg.Manual.DataDir = "./data"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = "gemini-embedding-001"
		}
	}

	if cfg.DocStore.Type == "" {
		cfg.DocStore.Type = "memory"
	}
	if cfg.DocStore.NResults == 0 {
		cfg.DocStore.NResults = 3
	}
	if cfg.DocStore.Type == "chromem" && cfg.DocStore.Chromem == nil {
		cfg.DocStore.Chromem = &ChromemConfig{}
	}
	if q := cfg.DocStore.Qdrant; q != nil && q.Collection == "" {
		q.Collection = "helperbot_manual"
	}

	if cfg.Completion.APIKeyEnv == "" {
		cfg.Completion.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-3.5-turbo"
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.1
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = 30
	}

	if cfg.Assistant.GreetingLabel == "" {
		cfg.Assistant.GreetingLabel = "greeting"
	}
	if cfg.Assistant.RetrievalFunction == "" {
		cfg.Assistant.RetrievalFunction = "get_data_from_db"
	}
	if cfg.Assistant.Strategy == "" {
		cfg.Assistant.Strategy = "prompt"
	}

	if cfg.History.Type == "" {
		cfg.History.Type = "jsonl"
	}
	if cfg.History.MaxHistory == 0 {
		cfg.History.MaxHistory = 10
	}
	if cfg.History.Dir == "" {
		cfg.History.Dir = "./chat_histories"
	}
	if cfg.History.Type == "sqlite" && cfg.History.SQLitePath == "" {
		cfg.History.SQLitePath = filepath.Join(cfg.History.Dir, "history.db")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
}
