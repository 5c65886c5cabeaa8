// Package config loads nbdl settings and stored NotebookLM credentials.
//
// Values come from, in increasing order of precedence: built-in defaults,
// the YAML settings file (~/.nlm/nbdl.yaml), the stored credentials file
// (~/.nlm/env, written by "nbdl auth"), and the process environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tmc/nbdl/internal/api"
)

// ErrNoCredentials is returned when no auth token or cookies are configured.
var ErrNoCredentials = errors.New("no credentials: run 'nbdl auth' or set NLM_AUTH_TOKEN and NLM_COOKIES")

// Environment variables.
const (
	EnvAuthToken      = "NLM_AUTH_TOKEN"
	EnvCookies        = "NLM_COOKIES"
	EnvBrowserProfile = "NLM_BROWSER_PROFILE"
	EnvDebug          = "NLM_DEBUG"
)

// File names inside the config directory.
const (
	EnvFile      = "env"
	SettingsFile = "nbdl.yaml"
)

// Defaults.
const (
	DefaultOutputDir      = "output"
	DefaultTimeout        = 60 * time.Second
	DefaultBrowserProfile = "Default"
)

// Settings are the user-editable options of the settings file.
type Settings struct {
	OutputDir      string        `yaml:"output_dir"`
	Debug          bool          `yaml:"debug"`
	Timeout        time.Duration `yaml:"timeout"`
	BrowserProfile string        `yaml:"browser_profile"`
}

// Config is the resolved configuration of one invocation.
type Config struct {
	Settings
	AuthToken string
	Cookies   string
}

// Credentials returns the stored NotebookLM credentials.
func (c *Config) Credentials() (api.Credentials, error) {
	if c.AuthToken == "" || c.Cookies == "" {
		return api.Credentials{}, ErrNoCredentials
	}
	return api.Credentials{AuthToken: c.AuthToken, Cookies: c.Cookies}, nil
}

// Dir returns the configuration directory, ~/.nlm.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".nlm"), nil
}

// Load resolves the configuration from the files in dir and the environment
// exposed by lookupEnv (typically os.LookupEnv). Missing files are not an
// error.
func Load(dir string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{Settings: Settings{
		OutputDir:      DefaultOutputDir,
		Timeout:        DefaultTimeout,
		BrowserProfile: DefaultBrowserProfile,
	}}

	if err := readSettings(filepath.Join(dir, SettingsFile), &cfg.Settings); err != nil {
		return nil, err
	}
	stored, err := ReadEnvFile(filepath.Join(dir, EnvFile))
	if err != nil {
		return nil, err
	}

	// An explicitly set variable, even an empty one, hides the stored value.
	get := func(key string) string {
		if v, ok := lookupEnv(key); ok {
			return v
		}
		return stored[key]
	}
	cfg.AuthToken = get(EnvAuthToken)
	cfg.Cookies = get(EnvCookies)
	if v := get(EnvBrowserProfile); v != "" {
		cfg.BrowserProfile = v
	}
	if v := get(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}
	return cfg, nil
}

func readSettings(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	// yaml.v3 decodes a bare integer into a time.Duration as nanoseconds.
	var raw struct {
		Timeout yaml.Node `yaml:"timeout"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if raw.Timeout.Kind == yaml.ScalarNode && raw.Timeout.ShortTag() == "!!int" {
		return fmt.Errorf("parse %s: timeout %s has no unit, write e.g. %ss", path, raw.Timeout.Value, raw.Timeout.Value)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("parse %s: negative timeout %v", path, s.Timeout)
	}
	return nil
}

// ReadEnvFile parses KEY=VALUE lines. Blank lines and lines starting with
// # are ignored; quoted values are unquoted. A missing file yields an empty
// map.
func ReadEnvFile(path string) (map[string]string, error) {
	vars := make(map[string]string)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return vars, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(nil, 1<<20) // cookie headers can be long
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		}
		vars[strings.TrimSpace(key)] = value
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vars, nil
}

// SaveCredentials writes the credentials file in dir, creating dir if
// needed, and returns its path. The file is readable only by the user.
func SaveCredentials(dir, authToken, cookies, profile string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, EnvFile)
	content := fmt.Sprintf("%s=%q\n%s=%q\n%s=%q\n",
		EnvCookies, cookies,
		EnvAuthToken, authToken,
		EnvBrowserProfile, profile,
	)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write env file: %w", err)
	}
	return path, nil
}
