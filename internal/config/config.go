package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the churn service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Data        DataConfig        `yaml:"data"`
	Models      ModelsConfig      `yaml:"models"`
	LLM         LLMConfig         `yaml:"llm"`
	Explanation ExplanationConfig `yaml:"explanation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Cache       CacheConfig       `yaml:"cache"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// DataConfig locates the reference customer table.
type DataConfig struct {
	Path string `yaml:"path"`
}

// ModelsConfig lists the artifacts to load and the ones averaged into the risk.
type ModelsConfig struct {
	Dir       string           `yaml:"dir"`
	Artifacts []ArtifactConfig `yaml:"artifacts"`
	Aggregate []string         `yaml:"aggregate"`
}

// ArtifactConfig names one model artifact.
type ArtifactConfig struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

// LLMConfig configures the OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExplanationConfig tunes the explanation prompt.
type ExplanationConfig struct {
	ImportancesPath string  `yaml:"importancesPath"`
	TopFeatures     int     `yaml:"topFeatures"`
	RiskThreshold   float64 `yaml:"riskThreshold"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls caching of generated explanations.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "valkey" or "memory".
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	TTL          time.Duration `yaml:"ttl"`
}

// Load initialises Config from a YAML file and optional environment overrides.
// A .env file in the working directory is read first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CHURN_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// AggregateSize is the number of models averaged into the headline risk.
const AggregateSize = 3

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm api key is required (GROQ_API_KEY)"))
	}
	if c.Data.Path == "" {
		errs = append(errs, errors.New("data.path is required"))
	}
	if len(c.Models.Artifacts) == 0 {
		errs = append(errs, errors.New("models.artifacts must list at least one model"))
	}
	if len(c.Models.Aggregate) != AggregateSize {
		errs = append(errs, fmt.Errorf("models.aggregate must name exactly %d models, got %d", AggregateSize, len(c.Models.Aggregate)))
	}
	if c.Explanation.RiskThreshold <= 0 || c.Explanation.RiskThreshold > 1 {
		errs = append(errs, fmt.Errorf("explanation.riskThreshold must be in (0,1], got %v", c.Explanation.RiskThreshold))
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "valkey":
			if c.Cache.Addr == "" {
				errs = append(errs, errors.New("cache.addr is required for the valkey backend"))
			}
		case "memory":
		default:
			errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
		}
	}
	return errors.Join(errs...)
}

// DefaultArtifacts is the model set shipped under models/.
func DefaultArtifacts() []ArtifactConfig {
	return []ArtifactConfig{
		{Name: "xgb_model", Label: "XGBoost"},
		{Name: "rfc_model", Label: "Random Forest"},
		{Name: "knn_model", Label: "K-Nearest Neighbors"},
		{Name: "gnb_model", Label: "Naive Bayes"},
		{Name: "tre_model", Label: "Decision Tree"},
		{Name: "svm_model", Label: "Support Vector Machine"},
		{Name: "xgb_featureengineering", Label: "XGBoost (Feature Engineering)"},
		{Name: "xgb_smote", Label: "XGBoost (SMOTE)"},
		{Name: "xgb_ensemble_soft", Label: "Soft Voting Ensemble"},
		{Name: "xgb_ensemble_hard", Label: "Hard Voting Ensemble"},
	}
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:     ":8080",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Data: DataConfig{Path: "data/churn.csv"},
		Models: ModelsConfig{
			Dir:       "models",
			Artifacts: DefaultArtifacts(),
			Aggregate: []string{"xgb_model", "rfc_model", "knn_model"},
		},
		LLM: LLMConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.2-3b-preview",
		},
		Explanation: ExplanationConfig{
			ImportancesPath: "configs/importances.yaml",
			TopFeatures:     10,
			RiskThreshold:   0.6,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			Backend:      "valkey",
			TTL:          24 * time.Hour,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHURN_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("CHURN_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("CHURN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CHURN_DATA_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("CHURN_MODELS_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("CHURN_AGGREGATE_MODELS"); v != "" {
		cfg.Models.Aggregate = splitList(v)
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CHURN_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CHURN_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CHURN_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CHURN_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("CHURN_IMPORTANCES_PATH"); v != "" {
		cfg.Explanation.ImportancesPath = v
	}
	if v := os.Getenv("CHURN_RISK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Explanation.RiskThreshold = f
		}
	}
	if v := os.Getenv("CHURN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHURN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CHURN_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("CHURN_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CHURN_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("CHURN_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("CHURN_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("CHURN_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("CHURN_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("CHURN_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("CHURN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
