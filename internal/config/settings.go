package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultDaemonAddress = "127.0.0.1:8807"

var defaultDisplayOrder = []string{
	"application/vnd.*",
	"image/svg+xml",
	"image/png",
	"image/jpeg",
	"text/markdown",
	"text/html",
	"application/json",
	"text/plain",
}

type Config struct {
	Daemon  DaemonConfig  `toml:"daemon"`
	Display DisplayConfig `toml:"display"`
	Logging LoggingConfig `toml:"logging"`
	Store   StoreConfig   `toml:"store"`
}

type DaemonConfig struct {
	Address string `toml:"address"`
}

type DisplayConfig struct {
	DefaultOrder []string `toml:"default_order"`
	RenderWidth  int      `toml:"render_width"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

func DefaultConfig() Config {
	return Config{
		Daemon: DaemonConfig{
			Address: defaultDaemonAddress,
		},
		Display: DisplayConfig{
			DefaultOrder: append([]string{}, defaultDisplayOrder...),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	if addr == "" {
		return defaultDaemonAddress
	}
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) DaemonBaseURL() string {
	return "http://" + c.DaemonAddress()
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) DefaultDisplayOrder() []string {
	order := normalizedList(c.Display.DefaultOrder)
	if len(order) == 0 {
		order = append([]string{}, defaultDisplayOrder...)
	}
	return order
}

func (c Config) RenderWidth() int {
	if c.Display.RenderWidth <= 0 {
		return 80
	}
	return c.Display.RenderWidth
}

// StorePath resolves the prefs database location, defaulting under the data
// directory.
func (c Config) StorePath() (string, error) {
	path := strings.TrimSpace(c.Store.Path)
	if path == "" {
		return PrefsDBPath()
	}
	return resolveConfigPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
