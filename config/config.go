package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the emulator configuration
type Config struct {
	// Execution settings
	Execution struct {
		MemorySize uint32 `toml:"memory_size"`
		PageOffset uint32 `toml:"page_offset"`
		MaxCycles  uint64 `toml:"max_cycles"`
		DTBPath    string `toml:"dtb_path"`
	} `toml:"execution"`

	// Debugger settings for the interactive terminal monitor
	Debugger struct {
		Enabled      bool `toml:"enabled"`
		HistorySize  int  `toml:"history_size"`
		ShowCSRs     bool `toml:"show_csrs"`
		BytesPerLine int  `toml:"bytes_per_line"`
	} `toml:"debugger"`

	// Trace settings
	Trace struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
		MaxEntries int    `toml:"max_entries"`
	} `toml:"trace"`

	// Statistics settings
	Statistics struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
		Format     string `toml:"format"` // json, csv
	} `toml:"statistics"`

	// Monitor settings for the HTTP+WebSocket status/control server
	Monitor struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"monitor"`

	// GUI settings for the optional fyne desktop dashboard
	GUI struct {
		Enabled bool `toml:"enabled"`
	} `toml:"gui"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Execution defaults, matching the memory layout of spec §3
	cfg.Execution.MemorySize = 64 * 1024 * 1024
	cfg.Execution.PageOffset = 0x80000000
	cfg.Execution.MaxCycles = 0 // 0 = unbounded
	cfg.Execution.DTBPath = ""

	// Debugger defaults
	cfg.Debugger.Enabled = false
	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.ShowCSRs = true
	cfg.Debugger.BytesPerLine = 16

	// Trace defaults
	cfg.Trace.Enabled = false
	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.MaxEntries = 100000

	// Statistics defaults
	cfg.Statistics.Enabled = false
	cfg.Statistics.OutputFile = "stats.json"
	cfg.Statistics.Format = "json"

	// Monitor defaults
	cfg.Monitor.Enabled = false
	cfg.Monitor.Addr = "127.0.0.1:7777"

	// GUI defaults
	cfg.GUI.Enabled = false

	return cfg
}

// appDirName is the subdirectory name used under both the config and log
// roots below. A RISC-V guest boot is most often driven from CI or a
// container rather than a user's desktop session, so both roots can be
// pinned with an env var instead of relying solely on the interactive
// per-OS conventions the teacher's debugger assumed a human was sitting
// in front of.
const appDirName = "rv32ima"

// GetConfigPath returns the config file path: RV32IMA_CONFIG_HOME if set,
// otherwise the platform-specific per-user config directory.
func GetConfigPath() string {
	if root := os.Getenv("RV32IMA_CONFIG_HOME"); root != "" {
		return configPathIn(root)
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\rv32ima\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, appDirName)

	case "darwin", "linux":
		// macOS/Linux: ~/.config/rv32ima/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", appDirName)

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	return configPathIn(configDir)
}

// configPathIn ensures dir exists and returns dir/config.toml, falling
// back to the current directory if dir cannot be created.
func configPathIn(dir string) string {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// GetLogPath returns the log directory: RV32IMA_LOG_HOME if set, otherwise
// the platform-specific per-user log/state directory. Trace and statistics
// output (§Statistics, §Trace) default here when no explicit output file
// is configured.
func GetLogPath() string {
	if root := os.Getenv("RV32IMA_LOG_HOME"); root != "" {
		return logDirIn(root)
	}

	var logDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\rv32ima\logs
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, appDirName, "logs")

	case "darwin", "linux":
		// macOS/Linux: ~/.local/share/rv32ima/logs
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", appDirName, "logs")

	default:
		return "logs"
	}

	return logDirIn(logDir)
}

// logDirIn ensures dir exists and returns it, falling back to "logs" in
// the current directory if dir cannot be created.
func logDirIn(dir string) string {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "logs"
	}
	return dir
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
