package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// TOMLFile is the preferred config file name inside a profile directory.
	TOMLFile = "config.toml"
	// YAMLFile is read when no TOMLFile exists.
	YAMLFile = "config.yaml"

	// ProfileEnv overrides the default profile directory.
	ProfileEnv = "M365_PROFILE"

	DefaultClientName      = "ms365_cli"
	DefaultClientVersion   = "1.0"
	DefaultTimeZone        = "America/Chicago"
	DefaultProtocolVersion = "2024-11-05"
	DefaultTimeoutSeconds  = 60
)

// ErrNotFound is returned by Load when path does not exist.
var ErrNotFound = errors.New("config not found")

// ServerConfig describes how the MCP server process is launched.
type ServerConfig struct {
	Command         string            `toml:"command" yaml:"command"`
	Args            []string          `toml:"args" yaml:"args"`
	LoginFlag       string            `toml:"loginFlag" yaml:"loginFlag"`
	TimeoutSeconds  int               `toml:"timeoutSeconds" yaml:"timeoutSeconds"`
	ProtocolVersion string            `toml:"protocolVersion" yaml:"protocolVersion"`
	Env             map[string]string `toml:"env,omitempty" yaml:"env,omitempty"`
}

// Timeout returns the per-call ceiling.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// EnvList converts Env to KEY=VALUE pairs.
func (s ServerConfig) EnvList() []string {
	if len(s.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		out = append(out, k+"="+v)
	}
	return out
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level" yaml:"level"`
	Format      string `toml:"format,omitempty" yaml:"format,omitempty"`
	FilePath    string `toml:"filePath,omitempty" yaml:"filePath,omitempty"`
	FileMaxSize int    `toml:"fileMaxSizeMB" yaml:"fileMaxSizeMB"`
}

// HistoryConfig controls the local call log.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	DBPath  string `toml:"dbPath" yaml:"dbPath"`
}

// BridgeConfig configures the m365d HTTP bridge.
type BridgeConfig struct {
	Listen        string  `toml:"listen" yaml:"listen"`
	Token         string  `toml:"token,omitempty" yaml:"token,omitempty"`
	RatePerSecond float64 `toml:"ratePerSecond" yaml:"ratePerSecond"`
	Burst         int     `toml:"burst" yaml:"burst"`
}

// ProfileConfig aggregates client configuration for a profile.
type ProfileConfig struct {
	ClientName string        `toml:"clientName" yaml:"clientName"`
	TimeZone   string        `toml:"timeZone" yaml:"timeZone"`
	Server     ServerConfig  `toml:"server" yaml:"server"`
	Logging    LoggingConfig `toml:"logging" yaml:"logging"`
	History    HistoryConfig `toml:"history" yaml:"history"`
	Bridge     BridgeConfig  `toml:"bridge" yaml:"bridge"`
}

// Default returns the configuration used when a profile has no config file.
func Default() *ProfileConfig {
	return &ProfileConfig{
		ClientName: DefaultClientName,
		TimeZone:   DefaultTimeZone,
		Server: ServerConfig{
			Command:         "npx",
			Args:            []string{"-y", "@softeria/ms-365-mcp-server"},
			LoginFlag:       "--login",
			TimeoutSeconds:  DefaultTimeoutSeconds,
			ProtocolVersion: DefaultProtocolVersion,
		},
		Logging: LoggingConfig{
			Level:       "warn",
			FileMaxSize: 10,
		},
		History: HistoryConfig{
			DBPath: "history.db",
		},
		Bridge: BridgeConfig{
			Listen:        "127.0.0.1:8365",
			RatePerSecond: 1,
			Burst:         2,
		},
	}
}

// DefaultProfileDir returns $M365_PROFILE or <UserConfigDir>/m365.
func DefaultProfileDir() string {
	if dir := os.Getenv(ProfileEnv); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ".m365"
	}
	return filepath.Join(base, "m365")
}

// Load reads a config file from path; the format follows the extension.
// Fields absent from the file keep their Default values.
func Load(path string) (*ProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadProfile loads config.toml (or config.yaml) from profileDir, falling back to
// Default when neither exists.
func LoadProfile(profileDir string) (*ProfileConfig, error) {
	for _, name := range []string{TOMLFile, YAMLFile} {
		cfg, err := Load(filepath.Join(profileDir, name))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

// Save writes cfg as TOML to path.
func Save(path string, cfg *ProfileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// ResolvePath joins relative paths onto the profile directory.
func ResolvePath(profileDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(profileDir, path)
}

func (cfg *ProfileConfig) validate() error {
	if cfg.Server.Command == "" {
		return fmt.Errorf("server.command required")
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeoutSeconds must be positive")
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = DefaultTimeZone
	}
	if cfg.Server.ProtocolVersion == "" {
		cfg.Server.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = "history.db"
	}
	return nil
}
