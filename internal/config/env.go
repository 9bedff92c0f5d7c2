// Package config loads and validates per-binary configuration from
// environment variables and command-line flags. Every flag mirrors an env
// var, normally the flag's name in UPPER_SNAKE form (the OpenTelemetry flags
// use the standard OTEL_* variable names); a flag value, when given, wins
// over the environment.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envStr returns the environment variable's value, or fallback if unset or empty.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectFloat parses a float env var, appending any error to the accumulator.
func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v, err := envFloat(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectDuration parses a duration env var, appending any error to the accumulator.
func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("config: invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
}

// stringFlag registers a string flag whose default is pre-seeded from the
// environment variable envKey, so an unset flag falls back to the env value
// and an explicit flag always wins.
func stringFlag(fs *flag.FlagSet, name, envKey, fallback string) *string {
	return fs.String(name, envStr(envKey, fallback), "mirrors "+envKey)
}

// resolveDatabaseURL applies the optional password-file indirection: when
// passwordFile is set, its trimmed contents replace the literal password
// segment of rawURL's userinfo. Used by every binary that takes a database
// connection string.
func resolveDatabaseURL(rawURL, passwordFile string) (string, error) {
	if passwordFile == "" {
		return rawURL, nil
	}
	data, err := os.ReadFile(passwordFile)
	if err != nil {
		return "", fmt.Errorf("config: read password file: %w", err)
	}
	password := strings.TrimSpace(string(data))
	idx := strings.Index(rawURL, "@")
	schemeEnd := strings.Index(rawURL, "://")
	if idx < 0 || schemeEnd < 0 || idx < schemeEnd {
		return "", fmt.Errorf("config: database URL has no userinfo segment to inject password into")
	}
	userinfo := rawURL[schemeEnd+3 : idx]
	user := userinfo
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		user = userinfo[:colon]
	}
	return rawURL[:schemeEnd+3] + user + ":" + password + rawURL[idx:], nil
}

// sanitizeURLForLogging replaces any userinfo password with "***" so
// database URLs can be logged safely.
func sanitizeURLForLogging(rawURL string) string {
	schemeEnd := strings.Index(rawURL, "://")
	at := strings.Index(rawURL, "@")
	if schemeEnd < 0 || at < 0 || at < schemeEnd {
		return rawURL
	}
	userinfo := rawURL[schemeEnd+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return rawURL
	}
	user := userinfo[:colon]
	return rawURL[:schemeEnd+3] + user + ":***" + rawURL[at:]
}
