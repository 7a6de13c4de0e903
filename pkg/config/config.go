/*
Package config manages TOML config for the shurufa decoder and trainer.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/internal/utils"
)

// Config holds the entire config structure
type Config struct {
	Beam       BeamConfig       `toml:"beam"`
	Dict       DictConfig       `toml:"dict"`
	Training   TrainingConfig   `toml:"training"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
}

// BeamConfig has beam-search decoding options.
type BeamConfig struct {
	Size int `toml:"size"`
}

// DictConfig holds dictionary validation limits.
type DictConfig struct {
	CodeLenLimit int `toml:"code_len_limit"`
	TextLenLimit int `toml:"text_len_limit"`
}

// TrainingConfig holds perceptron training options.
type TrainingConfig struct {
	LearningRate float64 `toml:"learning_rate"`
	Epochs       int     `toml:"epochs"`
	BatchSize    int     `toml:"batch_size"`
	Threads      int     `toml:"threads"`
}

// CheckpointConfig holds crash-recovery checkpoint options.
type CheckpointConfig struct {
	Path     string `toml:"path"`
	Interval int    `toml:"interval"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "shurufa")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "shurufa")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/shurufa/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Beam: BeamConfig{
			Size: 20,
		},
		Dict: DictConfig{
			CodeLenLimit: 16,
			TextLenLimit: 8,
		},
		Training: TrainingConfig{
			LearningRate: 0.01,
			Epochs:       2,
			BatchSize:    100,
			Threads:      10,
		},
		Checkpoint: CheckpointConfig{
			Path:     "checkpoint.msgpack",
			Interval: 1,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to salvage whatever sections of a malformed
// TOML file still parse, falling back to defaults section-by-section.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if beamSection, ok := utils.ExtractSection(tempConfig, "beam"); ok {
		extractBeamConfig(beamSection, &config.Beam)
	}
	if dictSection, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(dictSection, &config.Dict)
	}
	if trainingSection, ok := utils.ExtractSection(tempConfig, "training"); ok {
		extractTrainingConfig(trainingSection, &config.Training)
	}
	if checkpointSection, ok := utils.ExtractSection(tempConfig, "checkpoint"); ok {
		extractCheckpointConfig(checkpointSection, &config.Checkpoint)
	}
	return config, nil
}

func extractBeamConfig(data map[string]any, beam *BeamConfig) {
	if val, ok := utils.ExtractInt64(data, "size"); ok {
		beam.Size = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractInt64(data, "code_len_limit"); ok {
		dict.CodeLenLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "text_len_limit"); ok {
		dict.TextLenLimit = val
	}
}

func extractTrainingConfig(data map[string]any, training *TrainingConfig) {
	if val, ok := utils.ExtractFloat64(data, "learning_rate"); ok {
		training.LearningRate = val
	}
	if val, ok := utils.ExtractInt64(data, "epochs"); ok {
		training.Epochs = val
	}
	if val, ok := utils.ExtractInt64(data, "batch_size"); ok {
		training.BatchSize = val
	}
	if val, ok := utils.ExtractInt64(data, "threads"); ok {
		training.Threads = val
	}
}

func extractCheckpointConfig(data map[string]any, checkpoint *CheckpointConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		checkpoint.Path = val
	}
	if val, ok := utils.ExtractInt64(data, "interval"); ok {
		checkpoint.Interval = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOMLFile(config, defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
