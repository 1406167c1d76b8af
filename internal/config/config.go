// Package config loads ParityLens settings from config files, environment
// variables and the OS keychain.
//
// Precedence, highest first: environment variables, the config file,
// built-in defaults. Secrets (the OpenAI API key, an optional GitHub token)
// additionally fall back to the OS keychain so they never have to live in a
// file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/paritylens/paritylens/internal/classifier"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/errors"
	"github.com/paritylens/paritylens/internal/logging"
)

// Config is the full runtime configuration.
type Config struct {
	Dataset    DatasetConfig    `json:"dataset" yaml:"dataset" mapstructure:"dataset"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier" mapstructure:"classifier"`
	Storage    StorageConfig    `json:"storage" yaml:"storage" mapstructure:"storage"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Narrative  NarrativeConfig  `json:"narrative" yaml:"narrative" mapstructure:"narrative"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	API        APIConfig        `json:"api" yaml:"api" mapstructure:"api"`
}

// DatasetConfig says which screening file to analyze and how to filter it.
type DatasetConfig struct {
	// Dir holds the downloaded ProPublica CSV files.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
	// Variant selects the file: "general" or "violent".
	Variant string `json:"variant" yaml:"variant" mapstructure:"variant"`
	// GroupField is the default column to group metrics by.
	GroupField string `json:"group_field" yaml:"group_field" mapstructure:"group_field"`
	// Filters are the row inclusion rules applied on load.
	Filters dataset.FilterPolicy `json:"filters" yaml:"filters" mapstructure:"filters"`
}

// ClassifierConfig selects how raw scores become a binary prediction.
type ClassifierConfig struct {
	// Kind is "decile" (threshold on the 1..10 score) or "logit"
	// (pre-fitted logistic model over row features).
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`
	// MinPositiveDecile is the lowest decile counted as high risk.
	MinPositiveDecile int `json:"min_positive_decile" yaml:"min_positive_decile" mapstructure:"min_positive_decile"`
	// Logit holds the coefficients used when Kind is "logit".
	Logit classifier.LogisticModel `json:"logit" yaml:"logit" mapstructure:"logit"`
}

// StorageConfig selects the run store backend.
type StorageConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend     string `json:"backend" yaml:"backend" mapstructure:"backend"`
	SQLitePath  string `json:"sqlite_path" yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// FetchConfig points at the GitHub repository the datasets are fetched from.
type FetchConfig struct {
	Owner          string `json:"owner" yaml:"owner" mapstructure:"owner"`
	Repo           string `json:"repo" yaml:"repo" mapstructure:"repo"`
	CheckpointPath string `json:"checkpoint_path" yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
}

// OutputConfig holds presentation defaults; command-line flags override them.
type OutputConfig struct {
	// Format is the default report format: table, json, csv or html.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	// ReportDir is where `plens report` writes HTML files.
	ReportDir string `json:"report_dir" yaml:"report_dir" mapstructure:"report_dir"`
}

// NarrativeConfig controls the optional LLM summary of a run.
type NarrativeConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Model   string `json:"model" yaml:"model" mapstructure:"model"`
}

// LoggingConfig controls the structured slog stream the internal packages
// log to. Command feedback on stderr stays logrus, driven by CLI flags.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	// File additionally copies the stream to a size-rotated log file.
	// Empty means stderr only.
	File string `json:"file" yaml:"file" mapstructure:"file"`
	// JSON switches the stream to JSON records.
	JSON bool `json:"json" yaml:"json" mapstructure:"json"`
}

// Build converts the section to the logging package's configuration.
func (l LoggingConfig) Build() (logging.Config, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return logging.Config{}, errors.ConfigErrorf("logging.level: %v", err)
	}
	c := logging.DefaultConfig()
	c.Level = level
	c.OutputFile = l.File
	c.JSONFormat = l.JSON
	c.AddSource = level == logging.DEBUG
	return c, nil
}

// APIConfig carries secrets. Values here are normally empty in the config
// file and filled from the environment or the keychain at load time.
type APIConfig struct {
	OpenAIKey   string `json:"openai_key,omitempty" yaml:"openai_key,omitempty" mapstructure:"openai_key"`
	GitHubToken string `json:"github_token,omitempty" yaml:"github_token,omitempty" mapstructure:"github_token"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".paritylens")

	return &Config{
		Dataset: DatasetConfig{
			Dir:        "data",
			Variant:    string(dataset.VariantGeneral),
			GroupField: "race",
			Filters:    dataset.DefaultFilterPolicy(),
		},
		Classifier: ClassifierConfig{
			Kind:              "decile",
			MinPositiveDecile: classifier.NewScoreThreshold().MinPositiveDecile,
			Logit:             classifier.DefaultLogisticModel(),
		},
		Storage: StorageConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(stateDir, "paritylens.db"),
		},
		Fetch: FetchConfig{
			Owner:          "propublica",
			Repo:           "compas-analysis",
			CheckpointPath: filepath.Join(stateDir, "fetch-checkpoints.db"),
		},
		Output: OutputConfig{
			Format:    "table",
			ReportDir: "reports",
		},
		Narrative: NarrativeConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given file path, or from the standard
// search locations when path is empty: ./.paritylens/config.yaml,
// ./config.yaml, then ~/.paritylens/config.yaml. A missing config file is
// not an error; defaults and the environment still apply.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("PARITYLENS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".paritylens")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".paritylens"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.ConfigErrorf("read config file: %v", err)
		}
		// No config file found; run on defaults.
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ConfigErrorf("parse config: %v", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env files so that local development setups work
// without exporting variables. Values already in the environment win.
func loadEnvFiles() {
	godotenv.Load(".env.local")
	godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".paritylens", ".env"))
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("dataset.dir", def.Dataset.Dir)
	v.SetDefault("dataset.variant", def.Dataset.Variant)
	v.SetDefault("dataset.group_field", def.Dataset.GroupField)
	v.SetDefault("dataset.filters.charge_window_days", def.Dataset.Filters.ChargeWindowDays)
	v.SetDefault("dataset.filters.drop_missing_recid_flag", def.Dataset.Filters.DropMissingRecidFlag)
	v.SetDefault("dataset.filters.drop_traffic_offenses", def.Dataset.Filters.DropTrafficOffenses)
	v.SetDefault("dataset.filters.drop_missing_score", def.Dataset.Filters.DropMissingScore)

	v.SetDefault("classifier.kind", def.Classifier.Kind)
	v.SetDefault("classifier.min_positive_decile", def.Classifier.MinPositiveDecile)

	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.sqlite_path", def.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("fetch.owner", def.Fetch.Owner)
	v.SetDefault("fetch.repo", def.Fetch.Repo)
	v.SetDefault("fetch.checkpoint_path", def.Fetch.CheckpointPath)

	v.SetDefault("output.format", def.Output.Format)
	v.SetDefault("output.report_dir", def.Output.ReportDir)

	v.SetDefault("narrative.enabled", def.Narrative.Enabled)
	v.SetDefault("narrative.model", def.Narrative.Model)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.json", false)
}

// applyEnvOverrides maps the handful of well-known plain environment
// variables that users expect to work without the PARITYLENS_ prefix.
// Secrets additionally fall back to the OS keychain.
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("PARITYLENS_DATA_DIR"); dir != "" {
		cfg.Dataset.Dir = dir
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
		if os.Getenv("STORAGE_BACKEND") == "" {
			cfg.Storage.Backend = "postgres"
		}
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.Narrative.Model = model
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.OpenAIKey = key
	} else if cfg.API.OpenAIKey == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if key, err := km.GetAPIKey(); err == nil && key != "" {
				cfg.API.OpenAIKey = key
			}
		}
	}

	if tok := githubTokenFromEnv(); tok != "" {
		cfg.API.GitHubToken = tok
	} else if cfg.API.GitHubToken == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if tok, err := km.GetGitHubToken(); err == nil && tok != "" {
				cfg.API.GitHubToken = tok
			}
		}
	}
}

func githubTokenFromEnv() string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("GH_TOKEN")
}

// Validate rejects values that no command could act on.
func (c *Config) Validate() error {
	if _, err := dataset.ParseVariant(c.Dataset.Variant); err != nil {
		return errors.ConfigErrorf("dataset.variant: %v", err)
	}
	switch c.Classifier.Kind {
	case "decile", "logit":
	default:
		return errors.ConfigErrorf("classifier.kind %q: want decile or logit", c.Classifier.Kind)
	}
	if c.Classifier.MinPositiveDecile < 1 || c.Classifier.MinPositiveDecile > 10 {
		return errors.ConfigErrorf("classifier.min_positive_decile %d: want 1..10", c.Classifier.MinPositiveDecile)
	}
	switch c.Storage.Backend {
	case "sqlite", "postgres":
	default:
		return errors.ConfigErrorf("storage.backend %q: want sqlite or postgres", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return errors.ConfigError("storage.backend is postgres but postgres_dsn is empty; set POSTGRES_DSN or storage.postgres_dsn")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.ConfigErrorf("logging.level: %v", err)
	}
	return nil
}

// BuildClassifier constructs the classifier the config describes.
func (c *Config) BuildClassifier() (classifier.Classifier, error) {
	switch c.Classifier.Kind {
	case "decile":
		return classifier.ScoreThreshold{MinPositiveDecile: c.Classifier.MinPositiveDecile}, nil
	case "logit":
		return c.Classifier.Logit, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", c.Classifier.Kind)
	}
}
