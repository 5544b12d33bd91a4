package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appDir = "cyclestats"

// Global configuration structure.
type Global struct {
	// Stage inputs and outputs
	RawInput   string `mapstructure:"raw_input" yaml:"raw_input"`
	CSVPath    string `mapstructure:"csv_path" yaml:"csv_path"`
	LogPath    string `mapstructure:"log_path" yaml:"log_path"`
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`

	// Statistics
	Alpha                float64 `mapstructure:"alpha" yaml:"alpha"`
	UniqueThreshold      int     `mapstructure:"unique_threshold" yaml:"unique_threshold"`
	LargeSampleThreshold int     `mapstructure:"large_sample_threshold" yaml:"large_sample_threshold"`

	// Charts
	ChartWidthIn  float64  `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64  `mapstructure:"chart_height_in" yaml:"chart_height_in"`
	ChartDPI      int      `mapstructure:"chart_dpi" yaml:"chart_dpi"`
	Palette       []string `mapstructure:"palette" yaml:"palette"`

	// Optional Prometheus textfile with run metrics
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// DefaultPalette is a qualitative palette close to seaborn's "husl".
var DefaultPalette = []string{"#f77189", "#bb9832", "#50b131", "#36ada4", "#3ba3ec", "#e866f4"}

// DefaultPath returns $XDG_CONFIG_HOME/cyclestats/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, "config.yaml")
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to DefaultPath, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CYCLESTATS")
	v.AutomaticEnv()

	// Defaults mirror the course project layout
	v.SetDefault("raw_input", "./input_data/cycling.txt")
	v.SetDefault("csv_path", "./input_data/cycling.csv")
	v.SetDefault("log_path", "./logging.txt")
	v.SetDefault("results_dir", "./results")
	v.SetDefault("alpha", 0.05)
	v.SetDefault("unique_threshold", 10)
	v.SetDefault("large_sample_threshold", 5000)
	v.SetDefault("chart_width_in", 10.0)
	v.SetDefault("chart_height_in", 6.0)
	v.SetDefault("chart_dpi", 300)
	v.SetDefault("palette", DefaultPalette)
	v.SetDefault("metrics_file", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the statistics code cannot work with.
func (c *Global) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0,1), got %v", c.Alpha)
	}
	if c.UniqueThreshold < 1 {
		return fmt.Errorf("unique_threshold must be positive, got %d", c.UniqueThreshold)
	}
	if c.LargeSampleThreshold < 3 {
		return fmt.Errorf("large_sample_threshold must be at least 3, got %d", c.LargeSampleThreshold)
	}
	if c.ChartWidthIn <= 0 || c.ChartHeightIn <= 0 {
		return fmt.Errorf("chart size must be positive, got %vx%v", c.ChartWidthIn, c.ChartHeightIn)
	}
	if c.ChartDPI <= 0 {
		return fmt.Errorf("chart_dpi must be positive, got %d", c.ChartDPI)
	}
	if len(c.Palette) == 0 {
		return fmt.Errorf("palette must list at least one colour")
	}
	return nil
}
