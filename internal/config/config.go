package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Inventory backends.
const (
	BackendREST    = "rest"
	BackendVCenter = "vcenter"
	BackendMock    = "mock"
)

// InventoryConfig selects and configures the inventory source.
type InventoryConfig struct {
	Backend  string `mapstructure:"backend"`
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	Insecure bool   `mapstructure:"insecure"`
	CACert   string `mapstructure:"ca_cert"`
	RetryMax int    `mapstructure:"retry_max"`
}

// VCenterConfig is used by the vcenter backend. Provider names the
// Provider resource the vCenter inventory is reported under.
type VCenterConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Insecure    bool   `mapstructure:"insecure"`
	Provider    string `mapstructure:"provider"`
	ProviderUID string `mapstructure:"provider_uid"`
}

type PollingConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	FastInterval time.Duration `mapstructure:"fast_interval"`
	FastWindow   time.Duration `mapstructure:"fast_window"`
}

type MockConfig struct {
	Fixtures string `mapstructure:"fixtures"`
}

// Config holds all configuration (config file, environment, CLI flags).
type Config struct {
	Listen     string          `mapstructure:"listen"`
	WebDir     string          `mapstructure:"web_dir"`
	Dev        bool            `mapstructure:"dev"`
	LogLevel   string          `mapstructure:"log_level"`
	Namespace  string          `mapstructure:"namespace"`
	Kubeconfig string          `mapstructure:"kubeconfig"`
	SessionTTL time.Duration   `mapstructure:"session_ttl"`
	Inventory  InventoryConfig `mapstructure:"inventory"`
	VCenter    VCenterConfig   `mapstructure:"vcenter"`
	Polling    PollingConfig   `mapstructure:"polling"`
	Mock       MockConfig      `mapstructure:"mock"`
}

// EnvPrefix prefixes every environment variable, e.g. CONSOLE_INVENTORY_URL.
const EnvPrefix = "CONSOLE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("web_dir", "")
	v.SetDefault("dev", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("namespace", "openshift-migration")
	v.SetDefault("kubeconfig", "")
	v.SetDefault("session_ttl", 2*time.Hour)
	v.SetDefault("inventory.backend", BackendREST)
	v.SetDefault("inventory.url", "")
	v.SetDefault("inventory.token", "")
	v.SetDefault("inventory.insecure", false)
	v.SetDefault("inventory.ca_cert", "")
	v.SetDefault("inventory.retry_max", 3)
	v.SetDefault("vcenter.url", "")
	v.SetDefault("vcenter.username", "")
	v.SetDefault("vcenter.password", "")
	v.SetDefault("vcenter.insecure", false)
	v.SetDefault("vcenter.provider", "vcenter")
	v.SetDefault("vcenter.provider_uid", "")
	v.SetDefault("polling.interval", 10*time.Second)
	v.SetDefault("polling.fast_interval", 2*time.Second)
	v.SetDefault("polling.fast_window", time.Minute)
	v.SetDefault("mock.fixtures", "")
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"listen":            "listen",
	"web-dir":           "web_dir",
	"dev":               "dev",
	"log-level":         "log_level",
	"namespace":         "namespace",
	"kubeconfig":        "kubeconfig",
	"inventory-backend": "inventory.backend",
	"inventory-url":     "inventory.url",
	"fixtures":          "mock.fixtures",
}

// AddFlags registers the flags that may override config file values.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file (YAML)")
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("web-dir", "", "Directory with the built frontend")
	fs.Bool("dev", false, "Dev mode (proxy frontend to Vite dev server)")
	fs.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.String("namespace", "openshift-migration", "Namespace holding the migration resources")
	fs.String("kubeconfig", "", "Path to kubeconfig (in-cluster config when empty)")
	fs.String("inventory-backend", BackendREST, "Inventory backend: rest, vcenter or mock")
	fs.String("inventory-url", "", "Inventory service URL")
	fs.String("fixtures", "", "Fixture file for the mock backend (built-in set when empty)")
}

// Load reads configuration in increasing precedence: defaults, the config
// file named by the --config flag, CONSOLE_* environment variables, and
// flags explicitly set on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
		if path, err := fs.GetString("config"); err == nil && path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Inventory.Backend {
	case BackendREST:
		if c.Inventory.URL == "" {
			return fmt.Errorf("inventory.url is required for the %s backend", BackendREST)
		}
	case BackendVCenter:
		if c.VCenter.URL == "" {
			return fmt.Errorf("vcenter.url is required for the %s backend", BackendVCenter)
		}
	case BackendMock:
	default:
		return fmt.Errorf("unknown inventory backend %q", c.Inventory.Backend)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	return nil
}
