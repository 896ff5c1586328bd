package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/installer"
)

var (
	installUser      int
	installSpoof     bool
	installGrant     bool
	installDowngrade bool
	installYes       bool
	installConflict  string
)

// terminalPrompter asks conflict questions on stdin.
type terminalPrompter struct{}

func (terminalPrompter) ConfirmUninstall(packageID, reason string) bool {
	fmt.Print(i18n.T("cmd.install.conflictUninstall", map[string]interface{}{
		"Package": packageID,
		"Code":    reason,
	}) + " [y/N] ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var installCmd = &cobra.Command{
	Use:   "install <apk-or-bundle-path>",
	Short: "Install an APK, XAPK, or APKS bundle on a device",
	Long: `Install a single APK or a split bundle (XAPK/APKS/ZIP). Splits are
selected to match the device ABI, screen density, and language. Conflicting
installations can be resolved by uninstalling the existing package, and OBB
expansion files are pushed to shared storage.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		path := args[0]

		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("file not found: %s", path)
		}

		runner := newRunner()
		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		if installSpoof {
			if err := applySpoofBeforeInstall(ctx, runner, deviceID); err != nil {
				return err
			}
		}

		opts := installOptions(cmd)
		var prompter installer.Prompter
		if installYes {
			prompter = installer.StaticPrompter(true)
		} else {
			prompter = terminalPrompter{}
		}

		orch := installer.New(runner, logger, prompter, opts)

		fmt.Println(i18n.T("cmd.install.start", map[string]interface{}{
			"Path":   path,
			"Device": deviceID,
		}))

		result, err := orch.Install(ctx, deviceID, path)
		if result != nil {
			for _, warning := range result.Warnings {
				fmt.Printf("⚠ %s\n", warning)
			}
		}
		if err != nil {
			fmt.Println(i18n.T("cmd.install.failed", map[string]interface{}{
				"Reason": err.Error(),
			}))
			for _, hint := range orch.Diagnostics() {
				fmt.Printf("  💡 %s\n", hint)
			}
			return err
		}

		fmt.Println(i18n.T("cmd.install.success", map[string]interface{}{
			"Package": result.PackageID,
		}))
		if result.OBBsPushed > 0 {
			fmt.Printf("Pushed %d expansion file(s)\n", result.OBBsPushed)
		}
		return nil
	},
}

// installOptions merges configuration with explicitly set flags.
func installOptions(cmd *cobra.Command) installer.Options {
	cfg := appConfig.Install

	opts := installer.Options{
		TargetUser:         installUser,
		GrantPermissions:   cfg.GrantPermissions,
		AllowDowngrade:     cfg.AllowDowngrade,
		ConflictResolution: cfg.ConflictResolution,
		RetryMissingSplits: cfg.RetryMissingSplits,
		InstallTimeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		PushTimeout:        time.Duration(cfg.PushTimeoutSeconds) * time.Second,
		CleanupExtraction:  cfg.CleanupExtractionDirs,
	}

	if cmd.Flags().Changed("grant-perms") {
		opts.GrantPermissions = installGrant
	}
	if cmd.Flags().Changed("downgrade") {
		opts.AllowDowngrade = installDowngrade
	}
	if cmd.Flags().Changed("conflict") {
		opts.ConflictResolution = installConflict
	}
	if installYes && opts.ConflictResolution == "ask" {
		opts.ConflictResolution = "always"
	}

	return opts
}

// applySpoofBeforeInstall runs the configured spoof against the device
// so the installed app sees the disguised identity from first launch.
func applySpoofBeforeInstall(ctx context.Context, runner adb.Runner, deviceID string) error {
	if err := ensureSpoofCapable(ctx, adb.NewProbe(runner), deviceID); err != nil {
		return err
	}

	catalog, err := loadSpoofCatalog()
	if err != nil {
		return err
	}

	generator := newSpoofGenerator(catalog)
	identity, err := generator.Generate(appConfig.Spoof.Manufacturer, appConfig.Spoof.AndroidVersion)
	if err != nil {
		return err
	}

	engine := newSpoofEngine(runner, catalog)

	saved, err := loadBackupState(deviceID)
	if err != nil {
		return err
	}
	engine.SeedBackups(deviceID, saved)

	report, err := engine.Apply(ctx, deviceID, identity)
	if report != nil {
		if saveErr := saveBackupState(deviceID, engine.Backups(deviceID)); saveErr != nil {
			logger.Warn().Err(saveErr).Str("device", deviceID).Msg("could not persist property backups")
		}
	}
	if err != nil {
		return err
	}

	fmt.Println(i18n.T("cmd.spoof.applied", map[string]interface{}{
		"Count":    report.Applied,
		"Verified": report.Verified,
	}))
	return nil
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().IntVarP(&installUser, "user", "u", -1,
		"install for this Android user ID")
	installCmd.Flags().BoolVar(&installSpoof, "spoof", false,
		"apply device spoofing before installation")
	installCmd.Flags().BoolVarP(&installGrant, "grant-perms", "g", false,
		"grant all runtime permissions at install time")
	installCmd.Flags().BoolVarP(&installDowngrade, "downgrade", "d", false,
		"allow version downgrade")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false,
		"answer yes to all prompts")
	installCmd.Flags().StringVar(&installConflict, "conflict", "ask",
		"conflict resolution: ask, always, never")
}
