package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Catalog       string   `yaml:"catalog"`
	Debug         bool     `yaml:"debug"`
	Phase         int      `yaml:"phase"`
	PhaseOneCount int      `yaml:"phase_one_count"`
	Contact       Contact  `yaml:"contact"`
	Wiki          Wiki     `yaml:"wiki"`
	Archive       Archive  `yaml:"archive"`
	HTTP          HTTP     `yaml:"http"`
	Language      Language `yaml:"language"`
	Output        Output   `yaml:"output"`
}

// Contact is sent with every request as the User-Agent and From headers.
type Contact struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Wiki struct {
	BaseURL         string `yaml:"base_url"`
	EffectsPage     string `yaml:"effects_page"`
	RecordRevisions bool   `yaml:"record_revisions"`
}

type Archive struct {
	BaseURL      string `yaml:"base_url"`
	MaxResults   int    `yaml:"max_results"`
	DailyQuota   int    `yaml:"daily_quota"`
	BodyFallback bool   `yaml:"body_fallback"`
}

type HTTP struct {
	Timeout      time.Duration `yaml:"timeout"`
	RequestDelay time.Duration `yaml:"request_delay"`
}

type Language struct {
	Target string `yaml:"target"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
	// EffectGroupThreshold is the Ward distance up to which the summary
	// groups substances with similar effects. Zero means the default.
	EffectGroupThreshold float64 `yaml:"effect_group_threshold"`
}

// ConfigDir returns the XDG config directory for tripcorpus.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "tripcorpus")
}

// DataDir returns the XDG data directory for tripcorpus.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "tripcorpus")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/tripcorpus/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'tripcorpus init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Phase:         1,
		PhaseOneCount: 24,
		Wiki: Wiki{
			BaseURL:     "https://psychonautwiki.org",
			EffectsPage: "List/effects",
		},
		Archive: Archive{
			BaseURL:      "https://www.erowid.org",
			MaxResults:   10000,
			DailyQuota:   5000,
			BodyFallback: true,
		},
		Language: Language{Target: "en"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Phase != 1 && c.Phase != 2 {
		return fmt.Errorf("phase must be 1 or 2, got %d", c.Phase)
	}
	if c.PhaseOneCount < 0 {
		return fmt.Errorf("phase_one_count must not be negative, got %d", c.PhaseOneCount)
	}
	if c.Output.EffectGroupThreshold < 0 {
		return fmt.Errorf("output.effect_group_threshold must not be negative, got %g", c.Output.EffectGroupThreshold)
	}
	if c.Archive.MaxResults <= 0 {
		return fmt.Errorf("archive.max_results must be positive, got %d", c.Archive.MaxResults)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetCatalogPath returns the substance catalog path, defaulting to the
// catalog written next to the config file by 'tripcorpus init'.
func (c *Config) GetCatalogPath() string {
	if c.Catalog != "" {
		return c.Catalog
	}
	return filepath.Join(ConfigDir(), "psychedelics.csv")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
