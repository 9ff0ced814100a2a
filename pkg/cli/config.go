package cli

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/OscarSR27/ESDML-Lab2/pkg/archive"
	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

const (
	// DefaultBaseDir is the base configuration directory name.
	DefaultBaseDir = ".microkws"
	// DefaultConfigFile is the default configuration filename.
	DefaultConfigFile = "config.yaml"
)

// ErrNoContext is returned when no context is named and none is current.
var ErrNoContext = errors.New("no current context set")

// Config is the on-disk configuration of a CLI app.
type Config struct {
	// AppName is the application name, e.g. "kws".
	AppName string `yaml:"-"`

	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps names to contexts.
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named deployment profile.
type Context struct {
	Name string `yaml:"name"`

	// Profile holds the spotter parameters. Nil means kws.DefaultConfig.
	Profile *kws.Config `yaml:"profile,omitempty"`

	// EventLog is the Badger directory detections are recorded to.
	EventLog string `yaml:"event_log,omitempty"`

	// NotifyURL is a WebSocket endpoint detections are forwarded to.
	NotifyURL string `yaml:"notify_url,omitempty"`

	// Export is the default archive destination for event exports,
	// a directory or s3://bucket/prefix.
	Export string `yaml:"export,omitempty"`

	// S3 holds credentials for s3:// destinations.
	S3 *archive.S3Credentials `yaml:"s3,omitempty"`

	// Extra holds key/value tags sent along with every notification,
	// e.g. the device or room the stream comes from.
	Extra map[string]string `yaml:"extra,omitempty"`
}

// LoadConfig loads the configuration of appName from the default
// location. A missing file yields an empty Config.
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from customPath, or from the
// default location when customPath is empty.
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			cfg.Contexts[name] = &Context{Name: name}
			continue
		}
		ctx.Name = name
	}
	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration to disk, creating its directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// SetContext adds or replaces a context and saves.
func (c *Config) SetContext(name string, ctx *Context) error {
	if name == "" {
		return errors.New("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context and saves.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext makes name the current context and saves.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one when name
// is empty. ErrNoContext is returned when neither exists.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return nil, ErrNoContext
		}
		name = c.CurrentContext
	}
	return c.GetContext(name)
}

// ListContexts returns the context names in sorted order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SpotterConfig returns the context profile, or kws.DefaultConfig when
// none is stored. The result is a copy.
func (ctx *Context) SpotterConfig() kws.Config {
	if ctx == nil || ctx.Profile == nil {
		return kws.DefaultConfig()
	}
	p := *ctx.Profile
	p.Labels = slices.Clone(p.Labels)
	p.Ignore = slices.Clone(p.Ignore)
	return p
}

// S3Credentials returns the stored credentials or the zero value.
func (ctx *Context) S3Credentials() archive.S3Credentials {
	if ctx == nil || ctx.S3 == nil {
		return archive.S3Credentials{}
	}
	return *ctx.S3
}

// GetExtra returns an extra value for the context.
func (ctx *Context) GetExtra(key string) string {
	if ctx.Extra == nil {
		return ""
	}
	return ctx.Extra[key]
}

// SetExtra sets an extra value for the context. An empty value removes
// the key.
func (ctx *Context) SetExtra(key, value string) {
	if value == "" {
		delete(ctx.Extra, key)
		if len(ctx.Extra) == 0 {
			ctx.Extra = nil
		}
		return
	}
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]string)
	}
	ctx.Extra[key] = value
}

// ExtraKeys returns the extra keys in sorted order.
func (ctx *Context) ExtraKeys() []string {
	if ctx == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(ctx.Extra))
}

// MaskSecret masks a credential for display.
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
