// Package cfg loads service settings. Environment variables override the
// optional CONFIG_FILE YAML; a .env file only fills variables the
// environment does not already set.
package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"agri-yield/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var supportedModelLibs = []string{"gradient_boosting", "random_forest"}

type Settings struct {
	ModelPath           string
	ModelLib            string
	TrainingSamples     int
	TrainingSeed        uint64
	HTTPPort            int
	MetricsEnabled      bool
	EnableTrainEndpoint bool
	DataPath            string
	LogLevel            string
	RequestTimeout      time.Duration
	DashboardEnabled    bool
	DashboardInterval   time.Duration
}

type ConfigFile struct {
	Model struct {
		Path     string  `yaml:"path"`
		Lib      string  `yaml:"lib"`
		Samples  int     `yaml:"samples"`
		Seed     *uint64 `yaml:"seed"`
		TrainAPI *bool   `yaml:"trainEndpoint"`
	} `yaml:"model"`

	Server struct {
		Port           int    `yaml:"port"`
		RequestTimeout string `yaml:"requestTimeout"`
		Metrics        *bool  `yaml:"metrics"`
	} `yaml:"server"`

	Dashboard struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
	} `yaml:"dashboard"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if err := loadDotEnv(); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv reads ENV_FILE (default .env) if present. Variables already in
// the environment are left alone.
func loadDotEnv() error {
	path := getEnvOrDefault(common.EnvEnvFile, common.DefaultEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = common.DefaultRequestTimeout * time.Second
	}
	dashboardInterval, err := time.ParseDuration(config.Dashboard.Interval)
	if err != nil {
		dashboardInterval = common.DefaultDashboardInterval * time.Second
	}

	settings := Settings{
		ModelPath:           getEnvOrDefault(common.EnvModelPath, orDefault(config.Model.Path, common.DefaultModelPath)),
		ModelLib:            getEnvOrDefault(common.EnvModelLib, orDefault(config.Model.Lib, common.DefaultModelLib)),
		TrainingSamples:     getIntFromEnvOrConfig(common.EnvTrainingSamples, config.Model.Samples, common.DefaultTrainingSamples),
		TrainingSeed:        getUintFromEnvOrConfig(common.EnvTrainingSeed, config.Model.Seed, common.DefaultTrainingSeed),
		HTTPPort:            getIntFromEnvOrConfig(common.EnvHTTPPort, config.Server.Port, common.DefaultHTTPPort),
		MetricsEnabled:      getBoolOrDefault(common.EnvMetricsEnabled, boolOr(config.Server.Metrics, true)),
		EnableTrainEndpoint: getBoolOrDefault(common.EnvEnableTrainEndpoint, boolOr(config.Model.TrainAPI, true)),
		DataPath:            getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		LogLevel:            getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		RequestTimeout:      getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		DashboardEnabled:    getBoolOrDefault(common.EnvDashboardEnabled, config.Dashboard.Enabled),
		DashboardInterval:   getDurationOrDefault(common.EnvDashboardInterval, dashboardInterval),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelPath:           getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ModelLib:            getEnvOrDefault(common.EnvModelLib, common.DefaultModelLib),
		TrainingSamples:     getIntOrDefault(common.EnvTrainingSamples, common.DefaultTrainingSamples),
		TrainingSeed:        getUintOrDefault(common.EnvTrainingSeed, common.DefaultTrainingSeed),
		HTTPPort:            getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		MetricsEnabled:      getBoolOrDefault(common.EnvMetricsEnabled, true),
		EnableTrainEndpoint: getBoolOrDefault(common.EnvEnableTrainEndpoint, true),
		DataPath:            os.Getenv(common.EnvDataPath), // optional
		LogLevel:            getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		RequestTimeout:      getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout*time.Second),
		DashboardEnabled:    getBoolOrDefault(common.EnvDashboardEnabled, false),
		DashboardInterval:   getDurationOrDefault(common.EnvDashboardInterval, common.DefaultDashboardInterval*time.Second),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ZerologLevel maps LogLevel onto a zerolog level. Validation guarantees it
// parses.
func (s Settings) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Addr is the listen address for the HTTP server.
func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.HTTPPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func boolOr(v *bool, defaultValue bool) bool {
	if v != nil {
		return *v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getUintFromEnvOrConfig(key string, configValue *uint64, defaultValue uint64) uint64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseUint(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != nil {
		return *configValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if strings.TrimSpace(settings.ModelPath) == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	libOK := false
	for _, lib := range supportedModelLibs {
		if settings.ModelLib == lib {
			libOK = true
			break
		}
	}
	if !libOK {
		return fmt.Errorf("model lib must be one of %v, got %q", supportedModelLibs, settings.ModelLib)
	}

	if settings.TrainingSamples < common.MinTrainingSamples || settings.TrainingSamples > common.MaxTrainingSamples {
		return fmt.Errorf("training samples must be between %d and %d, got %d",
			common.MinTrainingSamples, common.MaxTrainingSamples, settings.TrainingSamples)
	}
	if settings.HTTPPort < common.MinHTTPPort || settings.HTTPPort > common.MaxHTTPPort {
		return fmt.Errorf("HTTP port must be between %d and %d, got %d",
			common.MinHTTPPort, common.MaxHTTPPort, settings.HTTPPort)
	}

	if settings.RequestTimeout < 100*time.Millisecond || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 100ms and 5m, got %v", settings.RequestTimeout)
	}
	if settings.DashboardEnabled && (settings.DashboardInterval < time.Second || settings.DashboardInterval > time.Hour) {
		return fmt.Errorf("dashboard interval must be between 1s and 1h, got %v", settings.DashboardInterval)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(settings.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}
