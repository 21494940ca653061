package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/odvcencio/cask/pkg/cask"
	"github.com/odvcencio/cask/pkg/pack"
)

const (
	configEnv  = "CASK_CONFIG"
	configFile = "cask.toml"
)

// Config holds the CLI settings read from a TOML file. Flags override it.
type Config struct {
	FPS        float64 `toml:"fps"`
	StrictSave bool    `toml:"strict_save"`
	LogLevel   string  `toml:"log_level"`
	CacheSize  int     `toml:"cache_size"`
	Color      string  `toml:"color"` // auto, always or never
}

func defaultConfig() Config {
	return Config{
		FPS:       cask.DefaultFPS,
		LogLevel:  "warn",
		CacheSize: pack.DefaultCacheSize,
		Color:     "auto",
	}
}

// ReadConfig loads the config at path. An empty path falls back to
// $CASK_CONFIG and then ./cask.toml; a missing fallback file yields the
// defaults, a missing explicit file is an error.
func ReadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(configEnv)
		explicit = path != ""
	}
	if path == "" {
		path = configFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("read config: %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("read config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %g", c.FPS)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func (c Config) logger(w io.Writer) *slog.Logger {
	l, err := c.level()
	if err != nil {
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// archiveOptions maps the config onto archive options. Diagnostics go to w.
func (c Config) archiveOptions(w io.Writer) []cask.Option {
	policy := cask.SaveReport
	if c.StrictSave {
		policy = cask.SaveStrict
	}
	return []cask.Option{
		cask.WithFPS(c.FPS),
		cask.WithCacheSize(c.CacheSize),
		cask.WithSavePolicy(policy),
		cask.WithLogger(c.logger(w)),
	}
}

// commandConfig reads the config named by the inherited --config flag and
// applies --log-level on top.
func commandConfig(cmd *cobra.Command) (Config, error) {
	var path string
	if f := cmd.Flags().Lookup("config"); f != nil {
		path = f.Value.String()
	}
	cfg, err := ReadConfig(path)
	if err != nil {
		return cfg, err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
		if _, err := cfg.level(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func openArchive(cmd *cobra.Command, cfg Config, path string) (*cask.Archive, error) {
	return cask.Open(path, cfg.archiveOptions(cmd.ErrOrStderr())...)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}
}
