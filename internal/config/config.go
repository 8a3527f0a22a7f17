// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	Game     GameConfig
	Engine   EngineConfig
	Cache    CacheConfig
	Schedule ScheduleConfig
	Backup   *BackupConfig

	// StrategiesFile is an optional YAML catalog overriding strategy defaults.
	StrategiesFile string
	Catalog        *Catalog
}

// GameConfig describes the shape of a draw and of a candidate set.
type GameConfig struct {
	Domain          int // N: primary numbers are drawn from 1..N
	PrimaryCount    int // P: primary numbers per draw
	SecondaryDomain int // M: secondary numbers are drawn from 1..M
	SecondaryCount  int // S: secondary numbers per draw
	CandidateSize   int // K: every candidate set is normalized to exactly K values
}

// ComplementSize is the size of a complement candidate set (N - K).
func (g GameConfig) ComplementSize() int {
	return g.Domain - g.CandidateSize
}

// EngineConfig tunes replay and ranking.
type EngineConfig struct {
	RankingWindow int           // W: records averaged per strategy
	ReplayWindow  int           // R: trailing draws passed to windowed strategies
	BatchSize     int           // draws processed between cooperative pauses
	BatchPause    time.Duration // pause between batches
	Tiers         []Tier        // ensemble tiers, in registration order
}

// Tier is one medal ensemble.
type Tier struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
}

// DefaultTiers are the medal ensembles registered when the catalog does not override them.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "gold", Size: 3},
		{Name: "silver", Size: 6},
		{Name: "bronze", Size: 9},
		{Name: "platinum", Size: 12},
	}
}

// CacheConfig selects the prediction cache backend.
type CacheConfig struct {
	Backend     string // "sqlite" (default) or "redis"
	RedisURL    string
	RedisPrefix string
	Concurrency int // strategies refreshed in parallel
}

// ScheduleConfig holds cron expressions used by the serve command.
type ScheduleConfig struct {
	Replay  string
	Ranking string
	Cache   string
	Backup  string
}

// BackupConfig holds S3-compatible backup settings.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // Optional custom endpoint (R2, MinIO)
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("AUGUR_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		Port:      getEnvAsInt("AUGUR_PORT", 8080),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Game: GameConfig{
			Domain:          getEnvAsInt("AUGUR_DOMAIN", 50),
			PrimaryCount:    getEnvAsInt("AUGUR_PRIMARY_COUNT", 5),
			SecondaryDomain: getEnvAsInt("AUGUR_SECONDARY_DOMAIN", 12),
			SecondaryCount:  getEnvAsInt("AUGUR_SECONDARY_COUNT", 2),
			CandidateSize:   getEnvAsInt("AUGUR_CANDIDATE_SIZE", 25),
		},
		Engine: EngineConfig{
			RankingWindow: getEnvAsInt("AUGUR_RANKING_WINDOW", 100),
			ReplayWindow:  getEnvAsInt("AUGUR_REPLAY_WINDOW", 100),
			BatchSize:     getEnvAsInt("AUGUR_BATCH_SIZE", 50),
			BatchPause:    getEnvAsDuration("AUGUR_BATCH_PAUSE", 10*time.Millisecond),
			Tiers:         DefaultTiers(),
		},
		Cache: CacheConfig{
			Backend:     getEnv("CACHE_BACKEND", "sqlite"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: getEnv("REDIS_PREFIX", "augur:prediction:"),
			Concurrency: getEnvAsInt("CACHE_CONCURRENCY", 4),
		},
		Schedule: ScheduleConfig{
			Replay:  getEnv("SCHEDULE_REPLAY", "0 */30 * * * *"),
			Ranking: getEnv("SCHEDULE_RANKING", "0 5 * * * *"),
			Cache:   getEnv("SCHEDULE_CACHE", "0 10 * * * *"),
			Backup:  getEnv("SCHEDULE_BACKUP", "0 0 3 * * *"),
		},
		Backup:         loadBackupConfig(),
		StrategiesFile: getEnv("AUGUR_STRATEGIES_FILE", ""),
	}

	if cfg.StrategiesFile != "" {
		catalog, err := LoadCatalog(cfg.StrategiesFile)
		if err != nil {
			return nil, err
		}
		cfg.Catalog = catalog
		if len(catalog.Tiers) > 0 {
			cfg.Engine.Tiers = catalog.Tiers
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	g := c.Game
	if g.Domain < 1 || g.SecondaryDomain < 1 {
		return fmt.Errorf("domains must be positive (N=%d, M=%d)", g.Domain, g.SecondaryDomain)
	}
	if g.PrimaryCount < 1 || g.PrimaryCount > g.Domain {
		return fmt.Errorf("primary count %d out of range 1..%d", g.PrimaryCount, g.Domain)
	}
	if g.SecondaryCount < 0 || g.SecondaryCount > g.SecondaryDomain {
		return fmt.Errorf("secondary count %d out of range 0..%d", g.SecondaryCount, g.SecondaryDomain)
	}
	if g.CandidateSize < 1 || g.CandidateSize >= g.Domain {
		return fmt.Errorf("candidate size %d out of range 1..%d", g.CandidateSize, g.Domain-1)
	}
	if c.Engine.RankingWindow < 1 {
		return fmt.Errorf("ranking window must be at least 1, got %d", c.Engine.RankingWindow)
	}
	if c.Engine.ReplayWindow < 1 {
		return fmt.Errorf("replay window must be at least 1, got %d", c.Engine.ReplayWindow)
	}
	if c.Engine.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.Engine.BatchSize)
	}
	for _, tier := range c.Engine.Tiers {
		if tier.Name == "" || tier.Size < 1 {
			return fmt.Errorf("invalid ensemble tier %q (size %d)", tier.Name, tier.Size)
		}
	}
	if c.Cache.Backend != "sqlite" && c.Cache.Backend != "redis" {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup enabled but BACKUP_S3_BUCKET is empty")
	}
	return nil
}

// Default returns the configuration used when no environment is set.
// Tests build on it instead of calling Load.
func Default() *Config {
	return &Config{
		DataDir:  os.TempDir(),
		LogLevel: "info",
		Port:     8080,
		Game: GameConfig{
			Domain:          50,
			PrimaryCount:    5,
			SecondaryDomain: 12,
			SecondaryCount:  2,
			CandidateSize:   25,
		},
		Engine: EngineConfig{
			RankingWindow: 100,
			ReplayWindow:  100,
			BatchSize:     50,
			Tiers:         DefaultTiers(),
		},
		Cache: CacheConfig{Backend: "sqlite", Concurrency: 4, RedisPrefix: "augur:prediction:"},
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		Prefix:          getEnv("BACKUP_S3_PREFIX", "augur/"),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
