package app

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application's settings registry. It is viper backed, so
// values resolve from explicit Sets first, then FLAGON_ prefixed environment
// variables, then merged config files, then defaults. Keys are lower case
// with dots, FLAGON_SESSION_LIFETIME shows up as session.lifetime.
type Config struct {
	v *viper.Viper
	// dir is where relative config file paths resolve
	dir string
}

// Config returns the application's settings registry, created on first use
// and seeded from the app's own knobs.
func (a *App) Config() *Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg == nil {
		a.cfg = a.newConfig()
	}
	return a.cfg
}

func (a *App) newConfig() *Config {
	v := viper.New()
	v.SetEnvPrefix("FLAGON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // picks up env vars automatically
	v.SetDefault("debug", a.debug)
	v.SetDefault("secret_key", a.secretKey)
	v.SetDefault("server_name", a.serverName)

	dir := a.rootPath
	if a.instanceRelativeConfig {
		dir = a.instancePath
	}
	return &Config{v: v, dir: dir}
}

// FromFile merges settings from a config file, json, yaml or toml by
// extension. Relative paths resolve against the root path, or the instance
// path when the app was created with WithInstanceRelativeConfig. Later files
// win over earlier ones, none of them over explicit Sets or the environment.
func (c *Config) FromFile(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	c.v.SetConfigFile(path)
	return c.v.MergeInConfig()
}

// FromMap merges a flat settings map.
func (c *Config) FromMap(settings map[string]interface{}) error {
	return c.v.MergeConfigMap(settings)
}

// Set assigns a value with the highest precedence.
func (c *Config) Set(key string, value interface{}) { c.v.Set(key, value) }

// SetDefault assigns a value with the lowest precedence.
func (c *Config) SetDefault(key string, value interface{}) { c.v.SetDefault(key, value) }

// IsSet reports whether the key resolves to anything.
func (c *Config) IsSet(key string) bool { return c.v.IsSet(key) }

func (c *Config) Get(key string) interface{}           { return c.v.Get(key) }
func (c *Config) GetString(key string) string          { return c.v.GetString(key) }
func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *Config) GetStringSlice(key string) []string   { return c.v.GetStringSlice(key) }
func (c *Config) AllSettings() map[string]interface{}  { return c.v.AllSettings() }
