package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	S3      S3Config      `mapstructure:"s3" yaml:"s3"`
	Harvest HarvestConfig `mapstructure:"harvest" yaml:"harvest"`
	Limits  LimitsConfig  `mapstructure:"limits" yaml:"limits"`
}

type IMAPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type S3Config struct {
	Bucket      string `mapstructure:"bucket" yaml:"bucket"`
	Region      string `mapstructure:"region" yaml:"region"`
	AccountsKey string `mapstructure:"accounts_key" yaml:"accounts_key"`
}

type HarvestConfig struct {
	Mailbox     string `mapstructure:"mailbox" yaml:"mailbox"`
	ImageWidth  int    `mapstructure:"image_width" yaml:"image_width"`
	ImageHeight int    `mapstructure:"image_height" yaml:"image_height"`
}

type LimitsConfig struct {
	RunTimeout    time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

func DefaultConfig() Config {
	return Config{
		IMAP: IMAPConfig{
			Host: "imap.gmail.com",
			Port: 993,
			TLS:  true,
		},
		S3: S3Config{
			AccountsKey: "service_emails.parquet",
		},
		Harvest: HarvestConfig{
			Mailbox:     "INBOX",
			ImageWidth:  500,
			ImageHeight: 500,
		},
		Limits: LimitsConfig{
			RunTimeout:    12 * time.Minute,
			BatchTimeout:  5 * time.Minute,
			MaxConcurrent: 150,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAILHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Save(cfg Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("imap.host", cfg.IMAP.Host)
	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.insecure_skip_verify", cfg.IMAP.InsecureSkipVerify)

	v.SetDefault("s3.accounts_key", cfg.S3.AccountsKey)

	v.SetDefault("harvest.mailbox", cfg.Harvest.Mailbox)
	v.SetDefault("harvest.image_width", cfg.Harvest.ImageWidth)
	v.SetDefault("harvest.image_height", cfg.Harvest.ImageHeight)

	v.SetDefault("limits.run_timeout", cfg.Limits.RunTimeout)
	v.SetDefault("limits.batch_timeout", cfg.Limits.BatchTimeout)
	v.SetDefault("limits.max_concurrent", cfg.Limits.MaxConcurrent)
}

func Validate(cfg Config) error {
	if err := ValidateIMAP(cfg); err != nil {
		return err
	}
	if err := ValidateS3(cfg); err != nil {
		return err
	}
	return ValidateLimits(cfg)
}

func ValidateIMAP(cfg Config) error {
	if cfg.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if cfg.IMAP.Port <= 0 {
		return fmt.Errorf("imap.port must be positive")
	}
	if cfg.Harvest.Mailbox == "" {
		return fmt.Errorf("harvest.mailbox is required")
	}
	return nil
}

func ValidateS3(cfg Config) error {
	if cfg.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	return nil
}

func ValidateLimits(cfg Config) error {
	if cfg.Limits.MaxConcurrent <= 0 {
		return fmt.Errorf("limits.max_concurrent must be positive")
	}
	if cfg.Limits.RunTimeout <= 0 {
		return fmt.Errorf("limits.run_timeout must be positive")
	}
	if cfg.Limits.BatchTimeout <= 0 {
		return fmt.Errorf("limits.batch_timeout must be positive")
	}
	return nil
}
