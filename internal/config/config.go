package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trooper/internal/errors"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the per-user config, cache and store directories.
const AppName = "trooper"

// Config represents the application settings loaded from config.yaml.
// Keybindings live in a separate INI file (see KeymapFile).
type Config struct {
	SequenceTimeout time.Duration `mapstructure:"sequence_timeout" yaml:"sequence_timeout"`   // Idle wait for ambiguous key sequences
	ShowHidden      bool          `mapstructure:"show_hidden" yaml:"show_hidden"`             // Start with hidden entries visible
	HiddenPatterns  []string      `mapstructure:"hidden_patterns" yaml:"hidden_patterns"`     // Globs treated as hidden besides dotfiles
	StoreDir        string        `mapstructure:"store_dir" yaml:"store_dir"`                 // Register and bookmark location
	KeymapFile      string        `mapstructure:"keymap_file" yaml:"keymap_file"`             // User keybinding overrides
	ListingCacheTTL time.Duration `mapstructure:"listing_cache_ttl" yaml:"listing_cache_ttl"` // 0 disables the listing cache
	Watch           bool          `mapstructure:"watch" yaml:"watch"`                         // Follow directory and store changes
	Theme           string        `mapstructure:"theme" yaml:"theme"`
	Log             struct {
		File  string `mapstructure:"file" yaml:"file"`
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"log" yaml:"log"`
}

// Dir returns the per-user configuration directory, e.g. ~/.config/trooper.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.NewConfigError("cannot locate user config directory", "", errors.ConfigNotFound, err)
	}
	return filepath.Join(base, AppName), nil
}

// DefaultPath returns the default location of config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Defaults returns the configuration used when no file sets a value.
// Path settings are derived from the user's config and cache directories.
func Defaults() Config {
	cfg := Config{
		SequenceTimeout: time.Second,
		ShowHidden:      false,
		HiddenPatterns:  []string{},
		ListingCacheTTL: 2 * time.Second,
		Watch:           true,
		Theme:           "default",
	}
	cfg.Log.Level = "info"

	if dir, err := Dir(); err == nil {
		cfg.StoreDir = dir
		cfg.KeymapFile = filepath.Join(dir, "config.ini")
	}
	if cache, err := os.UserCacheDir(); err == nil {
		cfg.Log.File = filepath.Join(cache, AppName, AppName+".log")
	}
	return cfg
}

// SetDefaults registers every default with v so that environment variables
// and bound flags are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("sequence_timeout", d.SequenceTimeout)
	v.SetDefault("show_hidden", d.ShowHidden)
	v.SetDefault("hidden_patterns", d.HiddenPatterns)
	v.SetDefault("store_dir", d.StoreDir)
	v.SetDefault("keymap_file", d.KeymapFile)
	v.SetDefault("listing_cache_ttl", d.ListingCacheTTL)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads settings into v and returns the validated result. An empty
// path searches the user config directory; a missing file is not an error.
// TROOPER_* environment variables override file values.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("TROOPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), os.IsNotExist(err):
			// defaults only
		default:
			return nil, errors.NewConfigError("error parsing config file", v.ConfigFileUsed(), errors.InvalidConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("error decoding config", v.ConfigFileUsed(), errors.InvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a specific config file with a fresh viper instance.
func LoadFile(path string) (*Config, error) {
	return Load(viper.New(), path)
}

// Save writes cfg as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}
	if c.SequenceTimeout <= 0 {
		return errors.NewConfigError("sequence_timeout must be positive", "sequence_timeout", errors.InvalidConfig, nil)
	}
	if c.SequenceTimeout > 10*time.Second {
		return errors.NewConfigError("sequence_timeout must not exceed 10s", "sequence_timeout", errors.InvalidConfig, nil)
	}
	if c.ListingCacheTTL < 0 {
		return errors.NewConfigError("listing_cache_ttl must be >= 0", "listing_cache_ttl", errors.InvalidConfig, nil)
	}
	for _, p := range c.HiddenPatterns {
		if _, err := glob.Compile(p); err != nil {
			return errors.NewConfigError("invalid hidden pattern", p, errors.InvalidConfig, err)
		}
	}
	if !isTheme(c.Theme) {
		return errors.NewConfigError("unknown theme", c.Theme, errors.InvalidConfig, nil)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return errors.NewConfigError("invalid log level", c.Log.Level, errors.InvalidConfig, err)
		}
	}
	return nil
}

// Theme holds the colors of the interface as lipgloss color strings.
type Theme struct {
	Primary  string
	Success  string
	Warning  string
	Error    string
	Info     string
	Emphasis string
	Border   string
}

var themes = map[string]Theme{
	"default": {
		Primary:  "213", // Purple
		Success:  "114", // Green
		Warning:  "220", // Yellow
		Error:    "196", // Red
		Info:     "39",  // Blue
		Emphasis: "212", // Light Pink
		Border:   "213",
	},
	"dark": {
		Primary:  "105",
		Success:  "78",
		Warning:  "214",
		Error:    "160",
		Info:     "33",
		Emphasis: "147",
		Border:   "105",
	},
	"light": {
		Primary:  "135",
		Success:  "150",
		Warning:  "222",
		Error:    "210",
		Info:     "117",
		Emphasis: "219",
		Border:   "135",
	},
	"monochrome": {
		Primary:  "245",
		Success:  "252",
		Warning:  "241",
		Error:    "232",
		Info:     "248",
		Emphasis: "255",
		Border:   "245",
	},
}

// GetTheme returns a predefined theme by name, falling back to "default".
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes["default"]
}

// ListThemes returns the available theme names.
func ListThemes() []string {
	return []string{"default", "dark", "light", "monochrome"}
}

func isTheme(name string) bool {
	_, ok := themes[name]
	return ok
}
