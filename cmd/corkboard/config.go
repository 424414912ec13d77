package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/pkg/models"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultDir          = ".corkboard"
	defaultDBPath       = ".corkboard/corkboard.db"
	defaultSnapshotPath = ".corkboard/snapshot.jsonl"
	defaultConfigPath   = ".corkboard/config.json"
	defaultPort         = "8000"
)

// Config is the merged result of defaults, .corkboard/config.json,
// CORKBOARD_* environment variables and command-line flags, in increasing
// order of precedence.
type Config struct {
	DBPath       string      `mapstructure:"db_path"`
	SnapshotPath string      `mapstructure:"snapshot_path"`
	AutoSnapshot bool        `mapstructure:"auto_snapshot"`
	Port         string      `mapstructure:"port"`
	LogLevel     string      `mapstructure:"log_level"`
	Board        BoardConfig `mapstructure:"default_board"`
}

// BoardConfig describes the board a fresh store starts with.
type BoardConfig struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Columns     []string `mapstructure:"columns"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("snapshot_path", defaultSnapshotPath)
	v.SetDefault("auto_snapshot", true)
	v.SetDefault("port", defaultPort)
	v.SetDefault("log_level", "info")
	v.SetDefault("default_board.name", "Default Project")
	v.SetDefault("default_board.description", "Your default project")
	columns := make([]string, len(models.DefaultColumns))
	for i, c := range models.DefaultColumns {
		columns[i] = c.Name
	}
	v.SetDefault("default_board.columns", columns)

	v.SetEnvPrefix("corkboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file at path, if it exists, and overlays any
// flags in fs that were set explicitly.
func loadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	if fs != nil {
		for key, name := range map[string]string{
			"db_path":       "db-path",
			"snapshot_path": "snapshot-path",
			"log_level":     "log-level",
		} {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// writeDefaultConfig writes the default settings to path unless a file is
// already there. It reports whether a file was written.
func writeDefaultConfig(path string) (bool, error) {
	v := newViper()
	v.SetConfigType("json")
	err := v.SafeWriteConfigAs(path)
	var exists viper.ConfigFileAlreadyExistsError
	if errors.As(err, &exists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}

// Defaults converts the configured default board for the store. Blank and
// repeated column names are skipped.
func (c *Config) Defaults() board.Defaults {
	d := board.Defaults{
		BoardName:        c.Board.Name,
		BoardDescription: c.Board.Description,
	}
	seen := make(map[string]bool, len(c.Board.Columns))
	for _, name := range c.Board.Columns {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		col := models.DefaultColumn{Name: name}
		for _, dc := range models.DefaultColumns {
			if dc.Name == name {
				col.ID = dc.ID
			}
		}
		d.Columns = append(d.Columns, col)
	}
	return d
}

// newLogger builds the text logger used by every command. verbose forces
// debug level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
