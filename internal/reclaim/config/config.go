package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log     LoggingConfig `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Gate    GateConfig    `koanf:"gate"`
	Monitor MonitorConfig `koanf:"monitor"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// ServerConfig controls the HTTP gateway.
type ServerConfig struct {
	// Listen is the ip:port the HTTP gateway binds to.
	Listen string `koanf:"listen" validate:"required,ip_port"`
}

// StoreConfig locates persisted rules.
type StoreConfig struct {
	// DB is the path of the bbolt rule database.
	DB string `koanf:"db" validate:"required"`
	// RulesDir optionally seeds the store from YAML/JSON/TOML rule files at startup.
	RulesDir string `koanf:"rules_dir"`
}

// GateConfig tunes URL evaluation.
type GateConfig struct {
	// PatternCacheSize bounds the compiled pattern cache; 0 disables it.
	PatternCacheSize int `koanf:"pattern_cache_size" validate:"gte=0"`
	// Holidays are dates (YYYY-MM-DD) on which SkipDaysOff rules are not enforced.
	Holidays []string `koanf:"holidays" validate:"dive,datetime=2006-01-02"`
}

// MonitorConfig controls the periodic re-check.
type MonitorConfig struct {
	Interval time.Duration `koanf:"interval" validate:"required,gte=1s"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings.
// The holiday list carries the Japanese public holidays for 2025 and 2026.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:    "prod",
	Log:    LoggingConfig{Level: "info"},
	Server: ServerConfig{Listen: "127.0.0.1:8377"},
	Store: StoreConfig{
		DB:       "/var/lib/reclaim/rules.db",
		RulesDir: "",
	},
	Gate: GateConfig{
		PatternCacheSize: 256,
		Holidays: []string{
			"2025-01-01", "2025-01-13", "2025-02-11", "2025-02-23", "2025-02-24",
			"2025-03-20", "2025-04-29", "2025-05-03", "2025-05-04", "2025-05-05",
			"2025-05-06", "2025-07-21", "2025-08-11", "2025-09-15", "2025-09-23",
			"2025-10-13", "2025-11-03", "2025-11-23", "2025-11-24",
			"2026-01-01", "2026-01-12", "2026-02-11", "2026-02-23", "2026-03-20",
			"2026-04-29", "2026-05-03", "2026-05-04", "2026-05-05", "2026-05-06",
			"2026-07-20", "2026-08-11", "2026-09-21", "2026-09-22", "2026-09-23",
			"2026-10-12", "2026-11-03", "2026-11-23",
		},
	},
	Monitor: MonitorConfig{Interval: 60 * time.Second},
}

// envKeys maps RECLAIM_* variable names (prefix stripped) to config paths.
var envKeys = map[string]string{
	"env":                "env",
	"log_level":          "log.level",
	"listen":             "server.listen",
	"db":                 "store.db",
	"rules_dir":          "store.rules_dir",
	"pattern_cache_size": "gate.pattern_cache_size",
	"holidays":           "gate.holidays",
	"recheck_interval":   "monitor.interval",
}

// validIPPort validates whether the provided field value is a valid IP address and port combination.
// It expects the value to be in the format "IP:Port".
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables with the prefix "RECLAIM_", maps
// them onto config paths and splits list values on spaces and commas.
// Variables not listed in envKeys are ignored. It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "RECLAIM_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "RECLAIM_"))
			path, ok := envKeys[key]
			if !ok {
				return "", nil
			}
			key = path
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into the provided Koanf instance.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "ip_port" validation.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
