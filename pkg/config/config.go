package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete switchback configuration
type Config struct {
	Inventory InventoryConfig `mapstructure:"inventory"`
	Repo      RepoConfig      `mapstructure:"repo"`
	SNMP      SNMPConfig      `mapstructure:"snmp"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Diff      DiffConfig      `mapstructure:"diff"`
	Run       RunConfig       `mapstructure:"run"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// InventoryConfig locates the per-group device list files
type InventoryConfig struct {
	Dir string `mapstructure:"dir"`
	// DefaultInterface is the interface whose address devices push
	// back to, unless a %interface directive overrides it per file.
	DefaultInterface string `mapstructure:"default_interface"`
	DefaultCommunity string `mapstructure:"default_community"`
}

// RepoConfig locates the version-control stores and working checkouts
type RepoConfig struct {
	StoreDir string `mapstructure:"store_dir"`
	WorkDir  string `mapstructure:"work_dir"`
	Author   string `mapstructure:"author"`
	Email    string `mapstructure:"email"`
}

// SNMPConfig tunes the SNMP transport
type SNMPConfig struct {
	Port    uint16        `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// TransferConfig controls the TFTP drop directory watcher
type TransferConfig struct {
	DropDir string        `mapstructure:"drop_dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DiffConfig controls config normalization before comparison
type DiffConfig struct {
	HeaderLines      int      `mapstructure:"header_lines"`
	VolatilePatterns []string `mapstructure:"volatile_patterns"`
}

// RunConfig controls batch execution
type RunConfig struct {
	GroupConcurrency int  `mapstructure:"group_concurrency"`
	NVRAMWrite       bool `mapstructure:"nvram_write"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	NoColor bool `mapstructure:"no_color"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Inventory: InventoryConfig{
			Dir:              "~/.switchback/groups",
			DefaultCommunity: "public",
		},
		Repo: RepoConfig{
			StoreDir: "~/.switchback/store",
			WorkDir:  "~/.switchback/work",
			Author:   "switchback",
			Email:    "switchback@localhost",
		},
		SNMP: SNMPConfig{
			Port:    161,
			Timeout: 30 * time.Second,
			Retries: 2,
		},
		Transfer: TransferConfig{
			DropDir: "/var/lib/tftpboot",
			Timeout: 30 * time.Second,
		},
		Diff: DiffConfig{
			HeaderLines:      5,
			VolatilePatterns: []string{`^ntp clock-period `},
		},
		Run: RunConfig{
			GroupConcurrency: 4,
			NVRAMWrite:       true,
		},
		Output: OutputConfig{
			NoColor: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from file, environment, and bound flags
func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".switchback"))
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SWITCHBACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("logging.level", "SWITCHBACK_LOG_LEVEL", "LOG_LEVEL")
	viper.BindEnv("inventory.default_community", "SWITCHBACK_COMMUNITY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we'll use defaults
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is usable for a run
func (c *Config) Validate() error {
	if c.Inventory.Dir == "" {
		return fmt.Errorf("inventory.dir is required")
	}
	if c.Repo.StoreDir == "" || c.Repo.WorkDir == "" {
		return fmt.Errorf("repo.store_dir and repo.work_dir are required")
	}
	if c.Transfer.DropDir == "" {
		return fmt.Errorf("transfer.drop_dir is required")
	}
	if c.SNMP.Timeout <= 0 {
		return fmt.Errorf("snmp.timeout must be positive")
	}
	if c.SNMP.Retries < 0 {
		return fmt.Errorf("snmp.retries must not be negative")
	}
	if c.Diff.HeaderLines < 0 {
		return fmt.Errorf("diff.header_lines must not be negative")
	}
	if c.Run.GroupConcurrency <= 0 {
		return fmt.Errorf("run.group_concurrency must be positive")
	}
	return nil
}

// ExpandPaths expands ~ in configured paths to the user home directory
func (c *Config) ExpandPaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	for _, p := range []*string{
		&c.Inventory.Dir,
		&c.Repo.StoreDir,
		&c.Repo.WorkDir,
		&c.Transfer.DropDir,
		&c.Logging.File,
	} {
		*p = expandPath(*p, home)
	}
	return nil
}

func expandPath(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
