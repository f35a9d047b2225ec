package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "QRBIND_"

// loadDotEnv exports variables from path into the process environment
// unless they are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// parseEnv overlays QRBIND_* variables. DATABASE_URL is honoured as a
// fallback for the DSN since hosting platforms commonly inject it.
func parseEnv(c *Config) error {
	if v, ok := os.LookupEnv("DATABASE_URL"); ok && v != "" {
		c.DatabaseDSN = v
	}

	strs := map[string]*string{
		"HTTP_ADDR":      &c.EndpointAddrHTTP,
		"GRPC_ADDR":      &c.EndpointAddrGRPC,
		"DATABASE_DSN":   &c.DatabaseDSN,
		"SECRET_KEY":     &c.SecretKey,
		"DEFAULT_SCHEME": &c.DefaultScheme,
		"RESPONSE_MODE":  &c.ResponseMode,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FORMAT":     &c.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":       &c.RequestTimeout,
		"BIND_TIMEOUT":          &c.BindTimeout,
		"SHUTDOWN_TIMEOUT":      &c.ShutdownTimeout,
		"HEALTH_CHECK_INTERVAL": &c.HealthCheckInterval,
	}
	for name, dst := range durations {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"MAX_REDIRECT_HOPS": &c.MaxRedirectHops,
		"MAX_OPEN_CONNS":    &c.MaxOpenConns,
	}
	for name, dst := range ints {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup("FOLLOW_REDIRECTS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sFOLLOW_REDIRECTS: %w", envPrefix, err)
		}
		c.FollowRedirects = b
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
