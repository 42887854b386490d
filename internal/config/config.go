// Package config layers command line flags, IMGDL_* environment variables and
// an optional YAML file into one validated run configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tanq16/imgdl/internal/naming"
	"github.com/tanq16/imgdl/internal/utils"
)

const EnvPrefix = "IMGDL"

// Option names shared by flags, environment variables and the config file.
const (
	OptOutput           = "output"
	OptRetries          = "retries"
	OptWorkers          = "workers"
	OptTimeout          = "timeout"
	OptKeepAliveTimeout = "keep-alive-timeout"
	OptUserAgent        = "user-agent"
	OptProxy            = "proxy"
	OptProxyUsername    = "proxy-username"
	OptProxyPassword    = "proxy-password"
	OptHeader           = "header"
	OptFormat           = "format"
	OptPreview          = "preview"
	OptBackoff          = "backoff"
	OptRate             = "rate"
	OptS3Profile        = "s3-profile"
	OptLogFile          = "log-file"
	OptDebug            = "debug"
	OptConfig           = "config"
)

type Config struct {
	Output    string
	Retries   int
	Workers   int
	Format    string
	Preview   bool
	Backoff   time.Duration
	Rate      float64
	S3Profile string
	LogFile   string
	Debug     bool
	HTTP      utils.HTTPClientConfig
}

// New returns a viper instance bound to flags with environment lookup
// enabled.
func New(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, utils.NewConfigError("flags", err)
		}
	}
	return v, nil
}

// Load reads the config file named by OptConfig, if any, and resolves every
// option.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString(OptConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, utils.NewConfigError("config file", err)
		}
	}

	cfg := Config{
		Output:    v.GetString(OptOutput),
		Retries:   v.GetInt(OptRetries),
		Workers:   v.GetInt(OptWorkers),
		Format:    strings.ToLower(strings.TrimPrefix(v.GetString(OptFormat), ".")),
		Preview:   v.GetBool(OptPreview),
		Backoff:   v.GetDuration(OptBackoff),
		Rate:      v.GetFloat64(OptRate),
		S3Profile: v.GetString(OptS3Profile),
		LogFile:   v.GetString(OptLogFile),
		Debug:     v.GetBool(OptDebug),
		HTTP: utils.HTTPClientConfig{
			Timeout:       v.GetDuration(OptTimeout),
			KATimeout:     v.GetDuration(OptKeepAliveTimeout),
			ProxyURL:      v.GetString(OptProxy),
			ProxyUsername: v.GetString(OptProxyUsername),
			ProxyPassword: v.GetString(OptProxyPassword),
			UserAgent:     v.GetString(OptUserAgent),
			Headers:       utils.ParseHeaderArgs(v.GetStringSlice(OptHeader)),
		},
	}
	if cfg.Output == "" {
		cfg.Output = "."
	}
	if cfg.LogFile == "" {
		cfg.LogFile = utils.LogFile
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = utils.DefaultTimeout
	}
	if cfg.HTTP.KATimeout == 0 {
		cfg.HTTP.KATimeout = utils.DefaultKATimeout
	}
	if cfg.HTTP.UserAgent == "randomize" {
		cfg.HTTP.UserAgent = utils.GetRandomUserAgent()
	}
	utils.SplitProxyCredentials(&cfg.HTTP)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Retries < 1 {
		errs = append(errs, fmt.Errorf("retries must be at least 1, got %d", c.Retries))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Format != "" && !naming.IsAllowed(c.Format) {
		errs = append(errs, fmt.Errorf("unsupported format %q, expected one of %s", c.Format, strings.Join(naming.AllowedExtensions, ", ")))
	}
	if c.Backoff < 0 {
		errs = append(errs, errors.New("backoff must not be negative"))
	}
	if c.Rate < 0 {
		errs = append(errs, errors.New("rate must not be negative"))
	}
	if c.HTTP.Timeout < 0 || c.HTTP.KATimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return utils.NewConfigError("options", err)
	}
	return nil
}

// RetryPolicy maps Retries to a policy where Retries is the total number of
// attempts.
func (c Config) RetryPolicy() utils.RetryPolicy {
	return utils.RetryPolicy{MaxAttempts: c.Retries, Backoff: c.Backoff}
}

func (c Config) PoolConfig() utils.PoolConfig {
	return utils.PoolConfig{Concurrency: c.Workers}
}
