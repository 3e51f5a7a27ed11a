package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// RequirementOverride adjusts the requirements on the dates matched by an rrule
type RequirementOverride struct {
	RRule string `yaml:"rrule" validate:"required"`

	// Headcounts replaces the headcount of the listed slots, e.g. {1: 4}
	Headcounts map[int]int `yaml:"headcounts,omitempty" validate:"dive,keys,min=1,max=4,endkeys,gte=0"`

	// OnCallNeeds replaces the role counts of the listed slots in simplified mode
	OnCallNeeds map[int]map[string]int `yaml:"onCallNeeds,omitempty" validate:"dive,keys,min=2,max=4,endkeys,dive,gte=0"`

	// Vehicles restricts the staffed vehicles in vehicle mode
	Vehicles []string `yaml:"vehicles,omitempty" validate:"dive,required"`
}

// Thresholds are the inclusive green/orange bounds of a coverage color
type Thresholds struct {
	High float64 `yaml:"high" validate:"gte=0,lte=100,gtefield=Mid"`
	Mid  float64 `yaml:"mid" validate:"gte=0,lte=100"`
}

// CoverageConfig configures the coverage report
type CoverageConfig struct {
	Role      *Thresholds     `yaml:"role,omitempty"`
	Headcount *Thresholds     `yaml:"headcount,omitempty"`
	Precision *int            `yaml:"precision,omitempty" validate:"omitempty,gte=0,lte=4"`
	SlotHours map[int]float64 `yaml:"slotHours,omitempty" validate:"dive,keys,min=1,max=4,endkeys,gte=0"`
}

// OptimizerConfig holds the defaults of every optimization run. Unset fields keep the built-in defaults.
type OptimizerConfig struct {
	Mode             string                 `yaml:"mode,omitempty" validate:"omitempty,oneof=VEHICULES SIMPLIFIE"`
	VehicleWeights   map[string]float64     `yaml:"vehicleWeights,omitempty" validate:"dive,gte=0"`
	CrewSlots        []int                  `yaml:"crewSlots,omitempty" validate:"dive,min=1,max=4"`
	PrimaryHeadcount *int                   `yaml:"primaryHeadcount,omitempty" validate:"omitempty,gte=0"`
	OnCallNeeds      map[int]map[string]int `yaml:"onCallNeeds,omitempty" validate:"dive,keys,min=2,max=4,endkeys,dive,gte=0"`

	FairnessCoefficient   *float64 `yaml:"fairnessCoefficient,omitempty" validate:"omitempty,gte=0"`
	PreferenceCoefficient *float64 `yaml:"preferenceCoefficient,omitempty" validate:"omitempty,gte=0"`
	QuotaMinCoefficient   *float64 `yaml:"quotaMinCoefficient,omitempty" validate:"omitempty,gte=0"`
	RestCoefficient       *float64 `yaml:"restCoefficient,omitempty" validate:"omitempty,gte=0"`
	MaxConsecutiveOnCall  *int     `yaml:"maxConsecutiveOnCall,omitempty" validate:"omitempty,gte=0"`
	PriorityCoefficient   *float64 `yaml:"priorityCoefficient,omitempty" validate:"omitempty,gte=0"`
	FairnessMetric        string   `yaml:"fairnessMetric,omitempty" validate:"omitempty,oneof=variance range"`

	// RolePriorities maps a grade label to per-role priorities, 1 being the most suitable
	RolePriorities map[string]map[string]int `yaml:"rolePriorities,omitempty" validate:"dive,dive,gte=0"`

	QuotaMin *int `yaml:"quotaMin,omitempty" validate:"omitempty,gte=0"`
	QuotaMax *int `yaml:"quotaMax,omitempty" validate:"omitempty,gte=0"`

	SlotOrder []int    `yaml:"slotOrder,omitempty" validate:"dive,min=1,max=4"`
	RankOrder []string `yaml:"rankOrder,omitempty" validate:"dive,oneof=qualification preference load id"`

	Coverage CoverageConfig `yaml:"coverage,omitempty"`

	MaxIterations *int          `yaml:"maxIterations,omitempty" validate:"omitempty,gte=0"`
	MaxPasses     *int          `yaml:"maxPasses,omitempty" validate:"omitempty,gte=0"`
	Timeout       time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	Workers       int           `yaml:"workers,omitempty" validate:"gte=0,lte=64"`
	MaxPeriodDays int           `yaml:"maxPeriodDays,omitempty" validate:"gte=0"`

	Overrides []RequirementOverride `yaml:"overrides,omitempty" validate:"dive"`
}

// DatabaseConfig selects and configures the run store
type DatabaseConfig struct {
	Driver     string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	URL        string `yaml:"url,omitempty" validate:"required_if=Driver postgres"`
	SQLitePath string `yaml:"sqlitePath,omitempty" validate:"required_if=Driver sqlite"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// CacheConfig configures the latest-plan cache. An empty address disables it.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty" validate:"gte=0"`
	TTL       time.Duration `yaml:"ttl,omitempty" validate:"gte=0"`
}

// EventsConfig configures plan events. No brokers disables publishing.
type EventsConfig struct {
	Brokers []string `yaml:"brokers,omitempty" validate:"dive,hostname_port"`
	Topic   string   `yaml:"topic,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	Events    EventsConfig    `yaml:"events,omitempty"`
	Optimizer OptimizerConfig `yaml:"optimizer,omitempty"`
}

const (
	DefaultSQLitePath = "spv_planning.db"
	DefaultServerAddr = ":8080"
	DefaultCacheTTL   = 24 * time.Hour
	DefaultTopic      = "spv.planning.computed"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from spv_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads spv_config.<env>.yaml, or spv_config.yaml when env is empty
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(configFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Environment variables override file values before validation.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Optimizer.QuotaMin != nil && cfg.Optimizer.QuotaMax != nil && *cfg.Optimizer.QuotaMin > *cfg.Optimizer.QuotaMax {
		return fmt.Errorf("config validation failed: optimizer.quotaMin is greater than optimizer.quotaMax")
	}

	// Validate rrule syntax for each override
	for i, override := range cfg.Optimizer.Overrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in optimizer.overrides[%d]: %w", i, err)
		}
	}

	return nil
}

// applyEnv overrides file values with the deployment environment variables
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_DRIVER"); ok && v != "" {
		cfg.Database.Driver = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Database.URL = v
		if cfg.Database.Driver == "" {
			cfg.Database.Driver = "postgres"
		}
	}
	if v, ok := lookup("SQLITE_PATH"); ok && v != "" {
		cfg.Database.SQLitePath = v
		if cfg.Database.Driver == "" {
			cfg.Database.Driver = "sqlite"
		}
	}
	if v, ok := lookup("SERVER_ADDR"); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Events.Brokers = splitList(v)
	}
	if v, ok := lookup("KAFKA_TOPIC"); ok && v != "" {
		cfg.Events.Topic = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = DefaultSQLitePath
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = DefaultTopic
	}
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func configFileName(env string) string {
	if env == "" {
		return "spv_config.yaml"
	}
	return fmt.Sprintf("spv_config.%s.yaml", env)
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
