package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all tool settings.
type Config struct {
	ADB      ADBConfig      `mapstructure:"adb"`
	Install  InstallConfig  `mapstructure:"install"`
	Spoof    SpoofConfig    `mapstructure:"spoof"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ADBConfig controls how the adb binary is invoked.
type ADBConfig struct {
	Path                   string `mapstructure:"path"`
	ShellTimeoutSeconds    int    `mapstructure:"shell_timeout_seconds"`
	PropertyTimeoutSeconds int    `mapstructure:"property_timeout_seconds"`
}

// InstallConfig controls APK and bundle installation behavior.
type InstallConfig struct {
	TimeoutSeconds        int    `mapstructure:"timeout_seconds"`
	PushTimeoutSeconds    int    `mapstructure:"push_timeout_seconds"`
	GrantPermissions      bool   `mapstructure:"grant_permissions"`
	AllowDowngrade        bool   `mapstructure:"allow_downgrade"`
	ConflictResolution    string `mapstructure:"conflict_resolution"` // ask, always, never
	RetryMissingSplits    bool   `mapstructure:"retry_missing_splits"`
	CleanupExtractionDirs bool   `mapstructure:"cleanup_extraction_dirs"`
}

// SpoofConfig controls device identity spoofing.
type SpoofConfig struct {
	Manufacturer             string `mapstructure:"manufacturer"`
	AndroidVersion           string `mapstructure:"android_version"`
	PatternsFile             string `mapstructure:"patterns_file"`
	RandomizeAndroidID       bool   `mapstructure:"randomize_android_id"`
	RequireVerification      bool   `mapstructure:"require_verification"`
	BackupOriginalProperties bool   `mapstructure:"backup_original_properties"`
	SpoofFingerprint         bool   `mapstructure:"spoof_fingerprint"`
	SpoofSerial              bool   `mapstructure:"spoof_serial"`
	SpoofDeviceIdentity      bool   `mapstructure:"spoof_device_identity"`
	SpoofVersionProps        bool   `mapstructure:"spoof_version_props"`
}

// ProfilesConfig controls user profile management.
type ProfilesConfig struct {
	BypassUserLimit   bool `mapstructure:"bypass_user_limit"`
	UseEphemeralUsers bool `mapstructure:"use_ephemeral_users"`
	DefaultMaxUsers   int  `mapstructure:"default_max_users"`
	MinStorageMB      int  `mapstructure:"min_storage_mb"`
	CreateAttempts    int  `mapstructure:"create_attempts"`
	SwitchWaitSeconds int  `mapstructure:"switch_wait_seconds"`
}

// LoggingConfig controls console and file logging.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

var defaultConfig = Config{
	ADB: ADBConfig{
		Path:                   "adb",
		ShellTimeoutSeconds:    30,
		PropertyTimeoutSeconds: 10,
	},
	Install: InstallConfig{
		TimeoutSeconds:        900,
		PushTimeoutSeconds:    600,
		GrantPermissions:      false,
		AllowDowngrade:        false,
		ConflictResolution:    "ask",
		RetryMissingSplits:    true,
		CleanupExtractionDirs: true,
	},
	Spoof: SpoofConfig{
		Manufacturer:             "",
		AndroidVersion:           "",
		PatternsFile:             "",
		RandomizeAndroidID:       false,
		RequireVerification:      true,
		BackupOriginalProperties: true,
		SpoofFingerprint:         true,
		SpoofSerial:              true,
		SpoofDeviceIdentity:      true,
		SpoofVersionProps:        true,
	},
	Profiles: ProfilesConfig{
		BypassUserLimit:   false,
		UseEphemeralUsers: false,
		DefaultMaxUsers:   4,
		MinStorageMB:      500,
		CreateAttempts:    3,
		SwitchWaitSeconds: 10,
	},
	Logging: LoggingConfig{
		Level:      "info",
		File:       "",
		MaxSizeMB:  10,
		MaxBackups: 3,
	},
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("adb.path", defaultConfig.ADB.Path)
	viper.SetDefault("adb.shell_timeout_seconds", defaultConfig.ADB.ShellTimeoutSeconds)
	viper.SetDefault("adb.property_timeout_seconds", defaultConfig.ADB.PropertyTimeoutSeconds)
	viper.SetDefault("install.timeout_seconds", defaultConfig.Install.TimeoutSeconds)
	viper.SetDefault("install.push_timeout_seconds", defaultConfig.Install.PushTimeoutSeconds)
	viper.SetDefault("install.grant_permissions", defaultConfig.Install.GrantPermissions)
	viper.SetDefault("install.allow_downgrade", defaultConfig.Install.AllowDowngrade)
	viper.SetDefault("install.conflict_resolution", defaultConfig.Install.ConflictResolution)
	viper.SetDefault("install.retry_missing_splits", defaultConfig.Install.RetryMissingSplits)
	viper.SetDefault("install.cleanup_extraction_dirs", defaultConfig.Install.CleanupExtractionDirs)
	viper.SetDefault("spoof.manufacturer", defaultConfig.Spoof.Manufacturer)
	viper.SetDefault("spoof.android_version", defaultConfig.Spoof.AndroidVersion)
	viper.SetDefault("spoof.patterns_file", defaultConfig.Spoof.PatternsFile)
	viper.SetDefault("spoof.randomize_android_id", defaultConfig.Spoof.RandomizeAndroidID)
	viper.SetDefault("spoof.require_verification", defaultConfig.Spoof.RequireVerification)
	viper.SetDefault("spoof.backup_original_properties", defaultConfig.Spoof.BackupOriginalProperties)
	viper.SetDefault("spoof.spoof_fingerprint", defaultConfig.Spoof.SpoofFingerprint)
	viper.SetDefault("spoof.spoof_serial", defaultConfig.Spoof.SpoofSerial)
	viper.SetDefault("spoof.spoof_device_identity", defaultConfig.Spoof.SpoofDeviceIdentity)
	viper.SetDefault("spoof.spoof_version_props", defaultConfig.Spoof.SpoofVersionProps)
	viper.SetDefault("profiles.bypass_user_limit", defaultConfig.Profiles.BypassUserLimit)
	viper.SetDefault("profiles.use_ephemeral_users", defaultConfig.Profiles.UseEphemeralUsers)
	viper.SetDefault("profiles.default_max_users", defaultConfig.Profiles.DefaultMaxUsers)
	viper.SetDefault("profiles.min_storage_mb", defaultConfig.Profiles.MinStorageMB)
	viper.SetDefault("profiles.create_attempts", defaultConfig.Profiles.CreateAttempts)
	viper.SetDefault("profiles.switch_wait_seconds", defaultConfig.Profiles.SwitchWaitSeconds)
	viper.SetDefault("logging.level", defaultConfig.Logging.Level)
	viper.SetDefault("logging.file", defaultConfig.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaultConfig.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaultConfig.Logging.MaxBackups)

	// Try to load config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config in current directory, then the user's home directory
		viper.SetConfigName("config")
		viper.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".apkspoof"))
		}
	}

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error, we'll use defaults
	}

	// Bind environment variables
	viper.SetEnvPrefix("APKSPOOF")
	viper.AutomaticEnv()

	// Unmarshal configuration
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// SaveTemplate saves a configuration template
func SaveTemplate(path string) error {
	templateContent := `# apkspoof Configuration File

adb:
  # Path to the adb binary
  path: "adb"

  # Timeout for ordinary shell commands (seconds)
  shell_timeout_seconds: 30

  # Timeout for property reads and writes (seconds)
  property_timeout_seconds: 10

install:
  # Overall install timeout for pm/install-multiple (seconds)
  timeout_seconds: 900

  # Timeout for pushing OBB expansion files (seconds)
  push_timeout_seconds: 600

  # Grant all runtime permissions at install time (-g)
  grant_permissions: false

  # Allow version downgrade (-d)
  allow_downgrade: false

  # How to resolve conflicting existing installations:
  # - "ask": prompt before uninstalling (default)
  # - "always": uninstall and retry without asking
  # - "never": fail without uninstalling
  conflict_resolution: "ask"

  # Retry once with all bundle files when the device reports a missing split
  retry_missing_splits: true

  # Remove temporary extraction directories after installation
  cleanup_extraction_dirs: true

spoof:
  # Manufacturer profile to mimic; empty picks one at random
  # (samsung, google, xiaomi, oneplus, oppo)
  manufacturer: ""

  # Android release to mimic; empty picks one at random (10-14)
  android_version: ""

  # Optional device pattern catalog (yaml or toml) overriding the built-in one
  patterns_file: ""

  # Also randomize the Android ID of the current user
  randomize_android_id: false

  # Treat a property change as failed unless the new value reads back
  require_verification: true

  # Record original property values before the first change so that
  # "restore" can put them back. Disabling this makes restore delete
  # the spoofed properties instead.
  backup_original_properties: true

  # Property groups to rewrite; disable one to leave its properties alone
  spoof_fingerprint: true
  spoof_serial: true
  spoof_device_identity: true
  spoof_version_props: true

profiles:
  # Raise the device user limit before creating users when the ceiling is hit
  bypass_user_limit: false

  # Create ephemeral users (SDK 26+); older devices get permanent users
  use_ephemeral_users: false

  # User limit to assume when the device does not report one
  default_max_users: 4

  # Minimum free space on /data before creating a user (MB)
  min_storage_mb: 500

  # Attempts for user creation, with exponential backoff between them
  create_attempts: 3

  # Seconds to wait for a user switch to be reflected by the device
  switch_wait_seconds: 10

logging:
  # Console log level: debug, info, warn, error
  level: "info"

  # Optional log file (JSON lines, rotated)
  file: ""

  # Rotate the log file after this size (MB)
  max_size_mb: 10

  # Rotated files to keep
  max_backups: 3
`

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, []byte(templateContent), 0644)
}
