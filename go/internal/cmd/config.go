package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDirName         = "global_pomodoro"
	settingsFileName   = "server.yaml"
	defaultAddr        = "127.0.0.1:9001"
	defaultSoundsDir   = "/usr/share/global_pomodoro/sounds"
	defaultReloadHosts = "sudo systemctl restart NetworkManager"
)

// Config is the server settings file, overridden by environment variables.
type Config struct {
	Server struct {
		Addr              string        `yaml:"addr"`
		BroadcastInterval time.Duration `yaml:"broadcast_interval"`
		TickInterval      time.Duration `yaml:"tick_interval"`
	} `yaml:"server"`
	Storage struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`
	Blocking struct {
		HostsFile     string `yaml:"hosts_file"`
		ReloadCommand string `yaml:"reload_command"`
	} `yaml:"blocking"`
	Sounds struct {
		Dir string `yaml:"dir"`
	} `yaml:"sounds"`
	Events struct {
		NATSURL string `yaml:"nats_url"`
	} `yaml:"events"`

	DevMode bool `yaml:"-"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// defaultSettingsPath is where the settings file lives when --config is not given.
func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return settingsFileName
	}
	return filepath.Join(dir, appDirName, settingsFileName)
}

// loadConfig reads path (a missing file is fine), applies the environment and
// fills in defaults.
func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.DevMode = getEnvAsBool("DEV_MODE", false)
	c.Server.Addr = getEnv("POMODORO_ADDR", c.Server.Addr)
	c.Storage.DataDir = getEnv("POMODORO_DATA_DIR", c.Storage.DataDir)
	c.Blocking.HostsFile = getEnv("HOSTS_FILE", c.Blocking.HostsFile)
	c.Blocking.ReloadCommand = getEnv("HOSTS_RELOAD_COMMAND", c.Blocking.ReloadCommand)
	c.Sounds.Dir = getEnv("POMODORO_SOUNDS_DIR", c.Sounds.Dir)
	c.Events.NATSURL = getEnv("NATS_URL", c.Events.NATSURL)
}

func (c *Config) applyDefaults() error {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.BroadcastInterval <= 0 {
		c.Server.BroadcastInterval = time.Second
	}
	if c.Server.TickInterval <= 0 {
		c.Server.TickInterval = time.Second
	}

	if c.Storage.DataDir == "" {
		dir, err := defaultDataDir(c.DevMode)
		if err != nil {
			return err
		}
		c.Storage.DataDir = dir
	}

	if c.Blocking.HostsFile == "" {
		c.Blocking.HostsFile = "/etc/hosts"
	}
	if c.Blocking.ReloadCommand == "" && !c.DevMode {
		c.Blocking.ReloadCommand = defaultReloadHosts
	}

	if c.Sounds.Dir == "" {
		if c.DevMode {
			c.Sounds.Dir = "sounds"
		} else {
			c.Sounds.Dir = defaultSoundsDir
		}
	}
	return nil
}

// ReloadArgs splits the hosts reload command into argv.
func (c *Config) ReloadArgs() []string {
	return strings.Fields(c.Blocking.ReloadCommand)
}

// defaultDataDir keeps data next to the binary in dev mode and in the user
// config directory otherwise.
func defaultDataDir(devMode bool) (string, error) {
	if devMode {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		return wd, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, appDirName), nil
}
