// Package config provides configuration management for synadm.
//
// Purpose:
//
//	Load the configuration from its layered sources and persist it back to
//	disk when the configurator runs. Uses Viper for loading with clear
//	precedence: environment variables > config file > defaults. Command-line
//	flags only affect the configurator, which writes them to the file.
//
// Dependencies:
//   - github.com/spf13/viper: layered loading
//   - gopkg.in/yaml.v3: writing the config file
//   - internal/output: validation of the default output format
//
// Configuration Sources:
//   - Environment variables: SYNADM_* prefix (e.g., SYNADM_BASE_URL)
//   - Config file: ~/.config/synadm.yaml (or explicit path via --config-file)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/output"
)

// Config holds all CLI configuration.
type Config struct {
	// Admin credentials
	User  string `yaml:"user"`
	Token string `yaml:"token"`

	// Homeserver connection
	BaseURL    string `yaml:"base_url"`
	AdminPath  string `yaml:"admin_path"`
	MatrixPath string `yaml:"matrix_path"`
	Timeout    int    `yaml:"timeout"` // seconds
	SSLVerify  bool   `yaml:"ssl_verify"`

	// Output Settings
	Format string `yaml:"format"`

	// Homeserver name lookup
	ServerDiscovery string `yaml:"server_discovery"`
	Homeserver      string `yaml:"homeserver"`

	// Config File Path the values were read from
	ConfigFile string `yaml:"-"`
}

// DefaultPath returns ~/.config/synadm.yaml, honouring XDG_CONFIG_HOME.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "synadm.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "synadm.yaml"
	}
	return filepath.Join(home, ".config", "synadm.yaml")
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load loads configuration from all sources with proper precedence. A
// missing file is not an error; the result then holds defaults only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandPath(path)

	v := viper.New()

	// Set defaults
	ApplyDefaults(v)

	// Set environment variable prefix
	v.SetEnvPrefix("SYNADM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// With an explicit file viper reports a missing file as an fs error
	// rather than ConfigFileNotFoundError, so check first.
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	cfg := &Config{
		User:            v.GetString("user"),
		Token:           v.GetString("token"),
		BaseURL:         v.GetString("base_url"),
		AdminPath:       v.GetString("admin_path"),
		MatrixPath:      v.GetString("matrix_path"),
		Timeout:         v.GetInt("timeout"),
		SSLVerify:       v.GetBool("ssl_verify"),
		Format:          v.GetString("format"),
		ServerDiscovery: v.GetString("server_discovery"),
		Homeserver:      v.GetString("homeserver"),
		ConfigFile:      path,
	}

	return cfg, nil
}

// Save writes cfg as YAML to path with mode 0600, creating parent
// directories as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandPath(path)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}
	return nil
}

// Missing returns the names of required entries that are empty.
func (c *Config) Missing() []string {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"user", c.User},
		{"token", c.Token},
		{"base_url", c.BaseURL},
		{"admin_path", c.AdminPath},
		{"matrix_path", c.MatrixPath},
		{"format", c.Format},
		{"server_discovery", c.ServerDiscovery},
		{"homeserver", c.Homeserver},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if c.Timeout <= 0 {
		missing = append(missing, "timeout")
	}
	return missing
}

// Complete reports whether every required entry is set.
func (c *Config) Complete() bool {
	return len(c.Missing()) == 0
}

// Validate checks values that have a fixed set of choices or a fixed shape.
func (c *Config) Validate() error {
	if _, err := output.ResolveFormat(c.Format); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	switch c.ServerDiscovery {
	case DiscoveryWellKnown, DiscoveryDNS:
	default:
		return fmt.Errorf("server_discovery: must be %q or %q, got %q", DiscoveryWellKnown, DiscoveryDNS, c.ServerDiscovery)
	}
	if _, _, _, err := c.Endpoint(); err != nil {
		return err
	}
	return nil
}

// Endpoint splits base_url into scheme, host and port. The port defaults
// to 443 for https and 80 for http.
func (c *Config) Endpoint() (scheme, host string, port int, err error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", 0, fmt.Errorf("base_url: scheme must be http or https, got %q", c.BaseURL)
	}
	host = u.Hostname()
	if host == "" {
		return "", "", 0, fmt.Errorf("base_url: missing host in %q", c.BaseURL)
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", "", 0, fmt.Errorf("base_url: invalid port %q", p)
		}
	} else if u.Scheme == "https" {
		port = 443
	} else {
		port = 80
	}
	return u.Scheme, host, port, nil
}

// IsLocalhost reports whether base_url points at the local machine.
func (c *Config) IsLocalhost() bool {
	_, host, _, err := c.Endpoint()
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// TimeoutSeconds returns the timeout, falling back to the default when unset.
func (c *Config) TimeoutSeconds() int {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
