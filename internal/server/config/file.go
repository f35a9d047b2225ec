package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/qrbind/internal/flagx"
	"github.com/dmitrijs2005/qrbind/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// "1s" style strings or integer nanoseconds. Zero values leave the
// corresponding setting untouched.
type FileConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN         string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey           string         `json:"secret_key" yaml:"secret_key"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	BindTimeout         timex.Duration `json:"bind_timeout" yaml:"bind_timeout"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	DefaultScheme       string         `json:"default_scheme" yaml:"default_scheme"`
	ResponseMode        string         `json:"response_mode" yaml:"response_mode"`
	FollowRedirects     *bool          `json:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirectHops     int            `json:"max_redirect_hops" yaml:"max_redirect_hops"`
	MaxOpenConns        int            `json:"max_open_conns" yaml:"max_open_conns"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	HealthCheckInterval timex.Duration `json:"health_check_interval" yaml:"health_check_interval"`
}

// parseFile loads the file named by -c/-config, if any. The format is
// chosen by extension: .yaml and .yml are YAML, anything else is JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.DefaultScheme, fc.DefaultScheme)
	setString(&c.ResponseMode, fc.ResponseMode)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.RequestTimeout.Duration != 0 {
		c.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.BindTimeout.Duration != 0 {
		c.BindTimeout = fc.BindTimeout.Duration
	}
	if fc.ShutdownTimeout.Duration != 0 {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	if fc.HealthCheckInterval.Duration != 0 {
		c.HealthCheckInterval = fc.HealthCheckInterval.Duration
	}
	if fc.FollowRedirects != nil {
		c.FollowRedirects = *fc.FollowRedirects
	}
	if fc.MaxRedirectHops != 0 {
		c.MaxRedirectHops = fc.MaxRedirectHops
	}
	if fc.MaxOpenConns != 0 {
		c.MaxOpenConns = fc.MaxOpenConns
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
