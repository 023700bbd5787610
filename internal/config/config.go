// Package config loads service settings from the environment, an optional
// .env file, and an optional YAML config file. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultCallWatchURL = "http://184.191.128.77:42420/CallWatch"
	defaultDataDir      = "data"
	defaultDBFile       = "roster_runs.db"
	defaultMaxRows      = 200
	defaultTimeoutSec   = 10
	defaultRatePerSec   = 2.0
	defaultIntervalSec  = 300
	defaultHTTPPort     = ":8080"
)

// Config holds all service settings.
type Config struct {
	DataDir      string
	CodePlugPath string
	AuditPath    string
	GroupPath    string
	DBPath       string

	CallWatchURL string
	PageParam    string
	AliasCol     int
	GroupCol     int
	NetworkCol   int
	MaxRows      int

	GroupTokens []string
	Network     string

	RadioIDBaseURL   string
	LookupTimeoutSec int
	LookupRatePerSec float64

	SourceMode  string // "http" or "dir"
	SnapshotDir string

	Daemon      bool
	IntervalSec int
	HTTPPort    string

	GroupMeBotID string
	GroupMeURL   string

	StrictConfig bool
}

type fileConfig struct {
	DataDir      string   `yaml:"data_dir"`
	CallWatchURL string   `yaml:"callwatch_url"`
	PageParam    string   `yaml:"page_param"`
	AliasCol     *int     `yaml:"alias_col"`
	GroupCol     *int     `yaml:"group_col"`
	NetworkCol   *int     `yaml:"network_col"`
	MaxRows      *int     `yaml:"max_rows"`
	GroupTokens  []string `yaml:"group_tokens"`
	Network      string   `yaml:"network"`
	RadioIDURL   string   `yaml:"radioid_url"`
	SourceMode   string   `yaml:"source_mode"`
	SnapshotDir  string   `yaml:"snapshot_dir"`
	IntervalSec  *int     `yaml:"interval_sec"`
	HTTPPort     string   `yaml:"http_port"`
}

// Load reads configuration and applies sane defaults. Soft errors are logged
// unless STRICT_CONFIG is set, in which case they become fatal.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AliasCol:         3,
		GroupCol:         4,
		NetworkCol:       6,
		MaxRows:          defaultMaxRows,
		LookupTimeoutSec: defaultTimeoutSec,
		LookupRatePerSec: defaultRatePerSec,
		IntervalSec:      defaultIntervalSec,
		GroupMeBotID:     os.Getenv("GROUPME_BOT_ID"),
		GroupMeURL:       getEnv("GROUPME_URL", "https://api.groupme.com/v3/bots/post"),
		StrictConfig:     parseBoolEnv("STRICT_CONFIG"),
		Daemon:           parseBoolEnv("DAEMON"),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil && !os.IsNotExist(fileErr) {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.DataDir = firstNonEmpty(os.Getenv("DATA_DIR"), fileCfg.DataDir, defaultDataDir)
	cfg.CodePlugPath = getEnv("CODE_PLUG_PATH", filepath.Join(cfg.DataDir, "code_plug.csv"))
	cfg.AuditPath = getEnv("ADD_USERS_PATH", filepath.Join(cfg.DataDir, "add_users.csv"))
	cfg.GroupPath = getEnv("MWG_USERS_PATH", filepath.Join(cfg.DataDir, "mwg_users.csv"))
	cfg.DBPath = getEnv("DB_PATH", filepath.Join(cfg.DataDir, defaultDBFile))

	cfg.CallWatchURL = firstNonEmpty(os.Getenv("CALLWATCH_URL"), fileCfg.CallWatchURL, defaultCallWatchURL)
	cfg.PageParam = firstNonEmpty(os.Getenv("CALLWATCH_PAGE_PARAM"), fileCfg.PageParam)
	applyIntFile(&cfg.AliasCol, fileCfg.AliasCol)
	applyIntFile(&cfg.GroupCol, fileCfg.GroupCol)
	applyIntFile(&cfg.NetworkCol, fileCfg.NetworkCol)
	applyIntFile(&cfg.MaxRows, fileCfg.MaxRows)
	applyIntEnv(&cfg.AliasCol, "ALIAS_COL")
	applyIntEnv(&cfg.GroupCol, "GROUP_COL")
	applyIntEnv(&cfg.NetworkCol, "NETWORK_COL")
	applyIntEnv(&cfg.MaxRows, "MAX_ROWS")

	cfg.GroupTokens = fileCfg.GroupTokens
	if v := strings.TrimSpace(os.Getenv("GROUP_TOKENS")); v != "" {
		cfg.GroupTokens = splitTokens(v)
	}
	if len(cfg.GroupTokens) == 0 {
		cfg.GroupTokens = []string{"MWave"}
	}
	cfg.Network = firstNonEmpty(os.Getenv("NETWORK"), fileCfg.Network, "AZ-TRBONET")

	cfg.RadioIDBaseURL = firstNonEmpty(os.Getenv("RADIOID_URL"), fileCfg.RadioIDURL)
	applyIntEnv(&cfg.LookupTimeoutSec, "LOOKUP_TIMEOUT_SEC")
	if v := strings.TrimSpace(os.Getenv("LOOKUP_RATE_PER_SEC")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			if cfg.StrictConfig {
				return cfg, fmt.Errorf("invalid LOOKUP_RATE_PER_SEC: %w", err)
			}
			log.Printf("invalid LOOKUP_RATE_PER_SEC=%q (using default)", v)
		} else {
			cfg.LookupRatePerSec = f
		}
	}

	cfg.SourceMode = strings.ToLower(firstNonEmpty(os.Getenv("SOURCE_MODE"), fileCfg.SourceMode, "http"))
	cfg.SnapshotDir = firstNonEmpty(os.Getenv("SNAPSHOT_DIR"), fileCfg.SnapshotDir)
	applyIntFile(&cfg.IntervalSec, fileCfg.IntervalSec)
	applyIntEnv(&cfg.IntervalSec, "INTERVAL_SEC")

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultHTTPPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if err := validate(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Printf("config validation failed: %v (continuing)", err)
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("DATA_DIR is required")
	}
	if cfg.LookupTimeoutSec <= 0 {
		return errors.New("LOOKUP_TIMEOUT_SEC must be positive")
	}
	if cfg.SourceMode != "http" && cfg.SourceMode != "dir" {
		return fmt.Errorf("SOURCE_MODE must be http or dir (got %q)", cfg.SourceMode)
	}
	if cfg.SourceMode == "dir" && strings.TrimSpace(cfg.SnapshotDir) == "" {
		return errors.New("SNAPSHOT_DIR is required in dir mode")
	}
	if cfg.Daemon && cfg.IntervalSec <= 0 {
		return errors.New("INTERVAL_SEC must be positive in daemon mode")
	}
	return nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func splitTokens(v string) []string {
	var out []string
	for _, tok := range strings.Split(v, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func applyIntEnv(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q (keeping %d)", key, v, *dst)
		return
	}
	*dst = n
}

func applyIntFile(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
