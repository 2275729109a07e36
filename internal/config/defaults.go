package config

import (
	"github.com/spf13/viper"
)

// Default values for every configuration key.
const (
	DefaultBaseURL         = "http://localhost:8008"
	DefaultAdminPath       = "/_synapse/admin"
	DefaultMatrixPath      = "/_matrix"
	DefaultTimeout         = 30
	DefaultFormat          = "yaml"
	DefaultServerDiscovery = DiscoveryWellKnown
	DefaultHomeserver      = AutoRetrieval
	DefaultSSLVerify       = true
)

// Server discovery methods and the homeserver placeholder.
const (
	DiscoveryWellKnown = "well-known"
	DiscoveryDNS       = "dns"
	AutoRetrieval      = "auto-retrieval"
)

// ApplyDefaults sets default configuration values in the provided Viper instance.
func ApplyDefaults(v *viper.Viper) {
	// Credentials have no default; an empty value makes the config incomplete.
	v.SetDefault("user", "")
	v.SetDefault("token", "")

	// Homeserver connection
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("admin_path", DefaultAdminPath)
	v.SetDefault("matrix_path", DefaultMatrixPath)
	v.SetDefault("timeout", DefaultTimeout) // seconds
	v.SetDefault("ssl_verify", DefaultSSLVerify)

	// Output
	v.SetDefault("format", DefaultFormat)

	// Homeserver name lookup
	v.SetDefault("server_discovery", DefaultServerDiscovery)
	v.SetDefault("homeserver", DefaultHomeserver)
}

// Defaults returns a Config populated with default values only.
func Defaults() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		AdminPath:       DefaultAdminPath,
		MatrixPath:      DefaultMatrixPath,
		Timeout:         DefaultTimeout,
		Format:          DefaultFormat,
		ServerDiscovery: DefaultServerDiscovery,
		Homeserver:      DefaultHomeserver,
		SSLVerify:       DefaultSSLVerify,
	}
}
