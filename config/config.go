package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/itish2003/guidedpath/models"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `yaml:"level"`
}

// VectorStoreConfig contains connection details for the Chroma server.
type VectorStoreConfig struct {
	URL         string `yaml:"url"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig configures the Ollama embedding endpoint.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig tunes the retriever and the default filters.
type RetrievalConfig struct {
	TopK                  int      `yaml:"top_k"`
	MinQuality            float64  `yaml:"min_quality"`
	PreferredInstitutions []string `yaml:"preferred_institutions"`
}

// ControllerConfig tunes response assembly and history.
type ControllerConfig struct {
	HistoryCapacity      int `yaml:"history_capacity"`
	ContextDocuments     int `yaml:"context_documents"`
	CitationCount        int `yaml:"citation_count"`
	MaxConcurrentQueries int `yaml:"max_concurrent_queries"`
}

// IngestionConfig configures chunking and directory indexing.
type IngestionConfig struct {
	ChunkSize        int      `yaml:"chunk_size"`
	ChunkOverlap     int      `yaml:"chunk_overlap"`
	BatchSize        int      `yaml:"batch_size"`
	WatchDir         string   `yaml:"watch_dir"`
	FileExtensions   []string `yaml:"file_extensions"`
	UnidocLicenseEnv string   `yaml:"unidoc_license_env"`
}

// ProfileConfig binds a routing profile to a backend and its limits.
type ProfileConfig struct {
	Backend         string  `yaml:"backend"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url,omitempty"`
	APIKeyEnv       string  `yaml:"api_key_env,omitempty"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
}

// Settings converts the YAML profile into what the model gateway needs.
func (p ProfileConfig) Settings() models.ProfileSettings {
	return models.ProfileSettings{
		Model:           p.Model,
		MaxTokens:       p.MaxTokens,
		Temperature:     p.Temperature,
		CostPer1KTokens: p.CostPer1KTokens,
		Timeout:         time.Duration(p.TimeoutSecs) * time.Second,
	}
}

// APIKey resolves the profile's key from the environment.
func (p ProfileConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig                           `yaml:"server"`
	Log         LogConfig                              `yaml:"log"`
	VectorStore VectorStoreConfig                      `yaml:"vector_store"`
	Embedder    EmbedderConfig                         `yaml:"embedder"`
	Retrieval   RetrievalConfig                        `yaml:"retrieval"`
	Controller  ControllerConfig                       `yaml:"controller"`
	Ingestion   IngestionConfig                        `yaml:"ingestion"`
	Profiles    map[models.ModelProfile]*ProfileConfig `yaml:"profiles"`
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
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault loads .env into the environment, then reads ./config.yaml,
// falling back to ~/.config/guidedpath/config.yaml and finally to defaults.
func LoadDefault() (*AppConfig, string, error) {
	_ = godotenv.Load()

	cwdPath := "config.yaml"
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
	return defaultConfig(), "", nil
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

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Retrieval.MinQuality < 0 || c.Retrieval.MinQuality > 1 {
		return fmt.Errorf("retrieval.min_quality must be within [0,1], got %v", c.Retrieval.MinQuality)
	}
	for name, p := range c.Profiles {
		if p == nil {
			return fmt.Errorf("profile %s: empty profile entry", name)
		}
		switch p.Backend {
		case "openai", "anthropic", "ollama", "gemini":
		default:
			return fmt.Errorf("profile %s: unknown backend %q", name, p.Backend)
		}
	}
	return nil
}

// VectorStoreTimeout is the hard bound on a single index call.
func (c *AppConfig) VectorStoreTimeout() time.Duration {
	return time.Duration(c.VectorStore.TimeoutSecs) * time.Second
}

// EmbedderTimeout is the HTTP client timeout for embedding calls.
func (c *AppConfig) EmbedderTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "guidedpath", "config.yaml"), nil
}

func defaultProfiles() map[models.ModelProfile]*ProfileConfig {
	return map[models.ModelProfile]*ProfileConfig{
		models.ProfileHighCapability: {
			Backend: "openai", Model: "gpt-4-1106-preview", APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 4000, Temperature: 0.1, CostPer1KTokens: 0.03, TimeoutSecs: 60,
		},
		models.ProfileFactRetrieval: {
			Backend: "ollama", Model: "meditron", BaseURL: "http://localhost:11434",
			MaxTokens: 512, Temperature: 0.1, CostPer1KTokens: 0.001, TimeoutSecs: 60,
		},
		models.ProfileMidTier: {
			Backend: "anthropic", Model: "claude-3-sonnet-20240229", APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 4000, Temperature: 0.1, CostPer1KTokens: 0.015, TimeoutSecs: 60,
		},
		models.ProfileGeneral: {
			Backend: "gemini", Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY",
			MaxTokens: 2000, Temperature: 0.2, CostPer1KTokens: 0.0035, TimeoutSecs: 30,
		},
	}
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.VectorStore.URL == "" {
		cfg.VectorStore.URL = "http://localhost:8000"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "medical_guidelines"
	}
	if cfg.VectorStore.TimeoutSecs == 0 {
		cfg.VectorStore.TimeoutSecs = 10
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "nomic-embed-text:v1.5"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MinQuality == 0 {
		cfg.Retrieval.MinQuality = 0.4
	}
	if len(cfg.Retrieval.PreferredInstitutions) == 0 {
		cfg.Retrieval.PreferredInstitutions = []string{"ASCO", "NCCN", "ESMO", "EULAR", "FDA", "NIH"}
	}
	if cfg.Controller.HistoryCapacity == 0 {
		cfg.Controller.HistoryCapacity = 100
	}
	if cfg.Controller.ContextDocuments == 0 {
		cfg.Controller.ContextDocuments = 3
	}
	if cfg.Controller.CitationCount == 0 {
		cfg.Controller.CitationCount = 5
	}
	if cfg.Controller.MaxConcurrentQueries == 0 {
		cfg.Controller.MaxConcurrentQueries = 10
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 1500
	}
	if cfg.Ingestion.ChunkOverlap == 0 {
		cfg.Ingestion.ChunkOverlap = 200
	}
	if cfg.Ingestion.BatchSize == 0 {
		cfg.Ingestion.BatchSize = 5
	}
	if len(cfg.Ingestion.FileExtensions) == 0 {
		cfg.Ingestion.FileExtensions = []string{".txt", ".md", ".pdf"}
	}
	if cfg.Ingestion.UnidocLicenseEnv == "" {
		cfg.Ingestion.UnidocLicenseEnv = "UNIDOC_LICENSE_KEY"
	}

	defaults := defaultProfiles()
	if cfg.Profiles == nil {
		cfg.Profiles = defaults
		return
	}
	for name, def := range defaults {
		p, ok := cfg.Profiles[name]
		if !ok || p == nil {
			cfg.Profiles[name] = def
			continue
		}
		if p.Backend == "" {
			p.Backend = def.Backend
		}
		if p.Model == "" {
			p.Model = def.Model
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = def.MaxTokens
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = def.TimeoutSecs
		}
		if p.APIKeyEnv == "" && p.Backend == def.Backend {
			p.APIKeyEnv = def.APIKeyEnv
		}
		if p.BaseURL == "" && p.Backend == "ollama" {
			p.BaseURL = "http://localhost:11434"
		}
	}
}
