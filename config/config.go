// Package config loads settings from flags, CONNECT4_ environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug        = "debug"
	ConfigLayoutPath   = "layout-path"
	ConfigRows         = "rows"
	ConfigColumns      = "columns"
	ConfigDepth        = "depth"
	ConfigHorizon      = "horizon"
	ConfigWorkers      = "workers"
	ConfigTransport    = "transport"
	ConfigNatsURL      = "nats-url"
	ConfigNatsSubject  = "nats-subject"
	ConfigWorkerID     = "worker-id"
	ConfigVerticalWins = "vertical-wins"
	ConfigShuffleTasks = "shuffle-tasks"
	ConfigCPUProfile   = "cpu-profile"

	configFile = "config"
)

const (
	TransportLocal = "local"
	TransportNATS  = "nats"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	*viper.Viper
}

func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigLayoutPath, "")
	c.SetDefault(ConfigRows, 6)
	c.SetDefault(ConfigColumns, 7)
	c.SetDefault(ConfigDepth, 5)
	c.SetDefault(ConfigHorizon, 0)
	c.SetDefault(ConfigWorkers, 4)
	c.SetDefault(ConfigTransport, TransportLocal)
	c.SetDefault(ConfigNatsURL, "nats://127.0.0.1:4222")
	c.SetDefault(ConfigNatsSubject, "connect4")
	c.SetDefault(ConfigWorkerID, 1)
	c.SetDefault(ConfigVerticalWins, false)
	c.SetDefault(ConfigShuffleTasks, true)
	c.SetDefault(ConfigCPUProfile, "")

	c.SetEnvPrefix("CONNECT4")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	return c
}

func flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging")
	fs.String(ConfigLayoutPath, "", "file with the starting position (.txt or .yaml)")
	fs.Int(ConfigRows, 6, "rows of an empty board")
	fs.Int(ConfigColumns, 7, "columns of an empty board")
	fs.Int(ConfigDepth, 5, "moves per task")
	fs.Int(ConfigHorizon, 0, "total search depth; 0 means the task depth")
	fs.Int(ConfigWorkers, 4, "number of workers")
	fs.String(ConfigTransport, TransportLocal, "local or nats")
	fs.String(ConfigNatsURL, "nats://127.0.0.1:4222", "NATS server url")
	fs.String(ConfigNatsSubject, "connect4", "NATS subject prefix")
	fs.Int(ConfigWorkerID, 1, "id of this worker process (nats only)")
	fs.Bool(ConfigVerticalWins, false, "count four in a column as a win")
	fs.Bool(ConfigShuffleTasks, true, "hand out tasks in random order")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(configFile, "", "YAML config file")
	return fs
}

// Load parses args on top of the environment and an optional config file.
func (c *Config) Load(args []string) error {
	fs := flagSet("connect4")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name != configFile {
			c.BindPFlag(f.Name, f)
		}
	})
	if path, _ := fs.GetString(configFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return c.Validate()
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	for _, k := range []string{ConfigRows, ConfigColumns, ConfigDepth, ConfigWorkers, ConfigWorkerID} {
		if c.GetInt(k) < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, k, c.GetInt(k))
		}
	}
	if c.GetInt(ConfigHorizon) < 0 {
		return fmt.Errorf("%w: negative horizon", ErrInvalidConfig)
	}
	if h := c.GetInt(ConfigHorizon); h != 0 && h < c.GetInt(ConfigDepth) {
		return fmt.Errorf("%w: horizon %d is shorter than depth %d", ErrInvalidConfig, h, c.GetInt(ConfigDepth))
	}
	switch t := c.GetString(ConfigTransport); t {
	case TransportLocal, TransportNATS:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, t)
	}
	return nil
}

func (c *Config) Depth() int { return c.GetInt(ConfigDepth) }

// Horizon is the total search depth, defaulting to the task depth.
func (c *Config) Horizon() int {
	if h := c.GetInt(ConfigHorizon); h > 0 {
		return h
	}
	return c.Depth()
}

// SanitizedSettings returns all settings with credentials removed from the
// NATS url, for logging.
func (c *Config) SanitizedSettings() map[string]any {
	settings := c.AllSettings()
	raw, ok := settings[ConfigNatsURL].(string)
	if !ok {
		return settings
	}
	u, err := url.Parse(raw)
	if err != nil {
		settings[ConfigNatsURL] = "<unparseable>"
		return settings
	}
	if u.User != nil {
		u.User = url.User("redacted")
		settings[ConfigNatsURL] = u.String()
	}
	return settings
}
