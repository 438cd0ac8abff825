package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
)

// Config is the tracker configuration file.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	LEGISinfo LEGISinfoConfig `yaml:"legisinfo"`
	Gazette   GazetteConfig   `yaml:"gazette"`
	Laws      LawsConfig      `yaml:"laws"`
	Notify    NotifyConfig    `yaml:"notify"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig locates on-disk state.
type StorageConfig struct {
	DataDir         string `yaml:"data_dir"`
	BillsFile       string `yaml:"bills_file"`       // bare file names resolve against data_dir
	RegulationsFile string `yaml:"regulations_file"` // bare file names resolve against data_dir
	JournalDB       string `yaml:"journal_db"`       // empty disables the change journal
	LawRepoDir      string `yaml:"law_repo_dir"`
	LawIndexDB      string `yaml:"law_index_db"`
}

// TrackerConfig drives the poll loop.
type TrackerConfig struct {
	PollInterval      string `yaml:"poll_interval"`
	FailureCooldown   string `yaml:"failure_cooldown"`
	BackfillDelay     string `yaml:"backfill_delay"`
	MinEntities       int    `yaml:"min_entities"`
	CurrentParliament int    `yaml:"current_parliament"`
	HistoricalFrom    int    `yaml:"historical_from"`
	HistoricalTo      int    `yaml:"historical_to"`
	MaxSessions       int    `yaml:"max_sessions"`
	DisableBackfill   bool   `yaml:"disable_backfill"`
	ForceBackfill     bool   `yaml:"force_backfill"`
}

// LEGISinfoConfig configures the bill source.
type LEGISinfoConfig struct {
	BaseURL           string           `yaml:"base_url"`
	Timeout           string           `yaml:"timeout"`
	UserAgent         string           `yaml:"user_agent"`
	RequestsPerSecond float64          `yaml:"requests_per_second"`
	RespectRobots     bool             `yaml:"respect_robots"`
	CacheTTL          string           `yaml:"cache_ttl"` // archived sessions only
	MaxBodyBytes      int64            `yaml:"max_body_bytes"`
	MaxRetries        int              `yaml:"max_retries"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitialDelay string           `yaml:"retry_initial_delay"`
	RetryMaxDelay     string           `yaml:"retry_max_delay"`
}

// GazetteConfig configures the regulation feeds.
type GazetteConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Part1URL     string `yaml:"part1_url"`
	Part2URL     string `yaml:"part2_url"`
	ScanInterval string `yaml:"scan_interval"`
}

// LawsConfig configures the consolidated law text mirror.
type LawsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RepoURL      string `yaml:"repo_url"`
	Branch       string `yaml:"branch"`
	SyncInterval string `yaml:"sync_interval"`
}

// NotifyConfig configures change notifications. An empty NATSURL disables NATS.
type NotifyConfig struct {
	NATSURL  string `yaml:"nats_url"`
	Subject  string `yaml:"subject"`
	KVBucket string `yaml:"kv_bucket"`
}

// HTTPConfig configures the query API.
type HTTPConfig struct {
	Listen  string `yaml:"listen"` // empty disables the API
	Metrics bool   `yaml:"metrics"`
}

// LoggingConfig mirrors the CLI logging flags for daemon deployments.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads path, expands ${ENV} references, applies defaults and validates.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).Build()
		}
		return nil, ferrors.ConfigError("failed to read config file").WithCause(err).Build()
	}
	return Parse(data)
}

// Parse decodes YAML content the same way Load does.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.ConfigError("failed to unmarshal config").WithCause(err).Build()
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	_ = applyDefaults(&cfg)
	return &cfg
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Default()
	example.Gazette.Enabled = true
	example.Notify.NATSURL = "${LEGISTRACK_NATS_URL}"
	example.HTTP.Listen = ":8086"

	data, err := yaml.Marshal(example)
	if err != nil {
		return ferrors.InternalError("failed to marshal example config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.ConfigError("failed to write config file").WithCause(err).Build()
	}
	return nil
}
