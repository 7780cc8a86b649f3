package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultServerAddr = "127.0.0.1:8080"
	defaultServerURL  = "http://127.0.0.1:8080"
	defaultMaxJobs    = 1000
	defaultStepDelay  = 2 * time.Second
)

// Config captures runtime configuration shared across commands.
type Config struct {
	DataDir string       `mapstructure:"data_dir"`
	Server  ServerConfig `mapstructure:"server"`
	Auth    AuthConfig   `mapstructure:"auth"`
	Scan    ScanConfig   `mapstructure:"scan"`
	Crack   CrackConfig  `mapstructure:"crack"`
	Jobs    JobsConfig   `mapstructure:"jobs"`
	NATS    NATSConfig   `mapstructure:"nats"`
	Client  ClientConfig `mapstructure:"client"`
}

// ServerConfig groups HTTP listener options for serve.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig holds the operator account and token settings.
type AuthConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	Password     string        `mapstructure:"password"`
	Secret       string        `mapstructure:"secret"`
	AccessTTL    time.Duration `mapstructure:"access_ttl"`
	RefreshTTL   time.Duration `mapstructure:"refresh_ttl"`
}

// ScanConfig selects scan sources.
type ScanConfig struct {
	UseNmcli    bool   `mapstructure:"use_nmcli"`
	CatalogFile string `mapstructure:"catalog_file"`
	MaxResults  int    `mapstructure:"max_results"`
}

// CrackConfig tunes the simulated cracking engine.
type CrackConfig struct {
	StepDelay      time.Duration     `mapstructure:"step_delay"`
	AttemptRate    int               `mapstructure:"attempt_rate"`
	Wordlist       string            `mapstructure:"wordlist"`
	LabPassphrases map[string]string `mapstructure:"lab_passphrases"`
}

// JobsConfig bounds the job tracker.
type JobsConfig struct {
	Max int `mapstructure:"max"`
}

// NATSConfig enables job event publishing when URL is set.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// ClientConfig configures the CLI client commands.
type ClientConfig struct {
	Server       string        `mapstructure:"server"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ScanTimeout  time.Duration `mapstructure:"scan_timeout"`
	SessionFile  string        `mapstructure:"session_file"`
}

// setConfigDefaults registers the built-in defaults on v.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("server.addr", defaultServerAddr)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("auth.username", "expert")
	v.SetDefault("auth.access_ttl", constants.AccessTokenTTL)
	v.SetDefault("auth.refresh_ttl", constants.RefreshTokenTTL)
	v.SetDefault("scan.max_results", constants.MaxScanResults)
	v.SetDefault("crack.step_delay", defaultStepDelay)
	v.SetDefault("crack.attempt_rate", 5)
	v.SetDefault("jobs.max", defaultMaxJobs)
	v.SetDefault("nats.subject", "wisafe.jobs")
	v.SetDefault("client.server", defaultServerURL)
	v.SetDefault("client.poll_interval", constants.PollInterval)
	v.SetDefault("client.scan_timeout", constants.ScanRequestTimeout)
}

// initConfig reads the config file and environment into v.
func initConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigName(".wisafe")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("WISAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setConfigDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist; the default file is optional.
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadConfig decodes v into a Config and resolves relative paths.
func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Client.SessionFile == "" {
		cfg.Client.SessionFile = filepath.Join(cfg.DataDir, "session.json")
	}
	return &cfg, nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".wisafe")
	}
	return ".wisafe"
}

// bindFlag makes flag name on flags override config key.
func bindFlag(v *viper.Viper, key string, flags *pflag.FlagSet, name string) {
	if f := flags.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}
