package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/config"
	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/logging"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/version"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

var (
	cfgFile     string
	flagDevice  string
	flagVerbose bool
	flagQuiet   bool
	flagLang    string
	flagLogFile string

	appConfig *config.Config
	logger    zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "apkspoof",
	Short: "ADB toolkit for APK installation and device identity management",
	Long: `apkspoof installs APKs and split bundles over adb, spoofs device build
properties with automatic backup and restore, and manages Android user
profiles with validated switching.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error with its
// remediation suggestions.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if toolErr, ok := err.(*apkerrors.ToolError); ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", toolErr)
			for _, s := range toolErr.Suggestions {
				fmt.Fprintf(os.Stderr, "  💡 %s\n", s)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setup loads configuration, initializes i18n, and builds the logger.
// It runs once before any subcommand.
func setup() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	appConfig = cfg

	if err := i18n.Init(flagLang); err != nil {
		return fmt.Errorf("failed to initialize localization: %w", err)
	}
	applyCommandLocalization()

	level := cfg.Logging.Level
	if flagVerbose {
		level = "debug"
	}
	logFile := cfg.Logging.File
	if flagLogFile != "" {
		logFile = flagLogFile
	}
	logger = logging.New(logging.Options{
		Level:      level,
		File:       logFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Quiet:      flagQuiet,
	})

	return nil
}

// newRunner builds the adb runner from configuration.
func newRunner() *adb.ExecRunner {
	return adb.NewExecRunner(appConfig.ADB.Path)
}

// resolveDevice returns the device to act on: the --device flag when
// given, otherwise the only online device.
func resolveDevice(ctx context.Context, runner adb.Runner) (string, error) {
	if flagDevice != "" {
		if err := adb.ValidateOnline(ctx, runner, flagDevice); err != nil {
			return "", err
		}
		return flagDevice, nil
	}

	status, err := adb.GetDeviceStatus(ctx, runner)
	if err != nil {
		return "", err
	}

	switch len(status.Online) {
	case 0:
		return "", apkerrors.NewDeviceError("NO_DEVICE", i18n.T("cmd.devices.none")).
			WithSuggestion("Connect a device and enable USB debugging").
			WithSuggestion("Run 'adb devices' to check what adb sees")
	case 1:
		return status.Online[0].ID, nil
	default:
		err := apkerrors.NewValidationError("AMBIGUOUS_DEVICE",
			fmt.Sprintf("%d devices online, pick one with --device", len(status.Online)))
		for _, d := range status.Online {
			err = err.WithSuggestion(fmt.Sprintf("--device %s (%s)", d.ID, adb.FormatDeviceName(d)))
		}
		return "", err
	}
}

// shellTimeout is the configured ordinary-command timeout.
func shellTimeout() time.Duration {
	return time.Duration(appConfig.ADB.ShellTimeoutSeconds) * time.Second
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Assigned here rather than in the command literal so rootCmd does
	// not depend on setup, which reads rootCmd during localization.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup()
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: $HOME/.apkspoof/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagDevice, "device", "s", "",
		"target device serial (defaults to the only connected device)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"suppress console output except errors")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "",
		"interface language (en, zh)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "",
		"write structured logs to this file")
}
