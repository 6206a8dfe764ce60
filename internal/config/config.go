// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Dashboard configures the browser dashboard listener.
type Dashboard struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MonitorInterval enables the background ratio poller when positive.
	MonitorInterval int    `yaml:"monitor_interval_ms"`
	JournalPath     string `yaml:"journal_path"`
}

// Governance holds guard-rails applied before a ratio change is submitted.
type Governance struct {
	MinRatioBP uint32 `yaml:"min_ratio_bp"`
	MaxRatioBP uint32 `yaml:"max_ratio_bp"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Network    Network    `yaml:"network"`
	Contracts  Contracts  `yaml:"contracts"`
	Wallet     Wallet     `yaml:"wallet"`
	Dashboard  Dashboard  `yaml:"dashboard"`
	Governance Governance `yaml:"governance"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// ApplyEnv overlays GOVDASH_* variables (and a best-effort .env file) on top of cfg.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	_ = godotenv.Load() // best-effort

	override(&cfg.Network.HorizonURL, EnvHorizonURL)
	override(&cfg.Network.RPCURL, EnvRPCURL)
	override(&cfg.Network.Passphrase, EnvNetworkPassphrase)
	override(&cfg.Contracts.Governance, EnvGovernanceContract)
	override(&cfg.Contracts.XAsset, EnvXAssetContract)
	override(&cfg.Wallet.Address, EnvWalletAddress)
	override(&cfg.App.LogLevel, EnvLogLevel)
}

func override(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
