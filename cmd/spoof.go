package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/profile"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/spoof"
)

var (
	spoofManufacturer string
	spoofVersion      string
	spoofModel        string
	spoofPatterns     string
	spoofDryRun       bool
	spoofAndroidID    bool
)

var spoofCmd = &cobra.Command{
	Use:   "spoof",
	Short: "Spoof device build properties with automatic backup",
	Long: `Generate a coherent device identity (fingerprint, build ID, serial,
model) and apply it via resetprop. Original values are backed up before the
first change and can be restored with the restore command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		catalog, err := loadSpoofCatalog()
		if err != nil {
			return err
		}

		manufacturer := spoofManufacturer
		if manufacturer == "" {
			manufacturer = appConfig.Spoof.Manufacturer
		}
		androidVersion := spoofVersion
		if androidVersion == "" {
			androidVersion = appConfig.Spoof.AndroidVersion
		}

		generator := newSpoofGenerator(catalog)
		identity, err := generator.GenerateWithModel(manufacturer, androidVersion, spoofModel)
		if err != nil {
			return err
		}

		if spoofDryRun {
			fmt.Println(i18n.T("cmd.spoof.dryRun"))
			printIdentity(identity)
			return nil
		}

		runner := newRunner()
		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		if err := ensureSpoofCapable(ctx, adb.NewProbe(runner), deviceID); err != nil {
			return err
		}

		engine := newSpoofEngine(runner, catalog)

		// Earlier runs may have recorded originals already; those win.
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

		if spoofAndroidID || appConfig.Spoof.RandomizeAndroidID {
			probe := adb.NewProbe(runner)
			mgr := profile.NewManager(runner, probe, engine, logger, profileOptions())
			current, err := mgr.CurrentUser(ctx, deviceID)
			if err != nil {
				return err
			}
			newID, err := engine.RandomizeAndroidID(ctx, deviceID, current, generator.AndroidID())
			if err != nil {
				return err
			}
			fmt.Printf("android_id (user %d): %s\n", current, newID)
		}

		return nil
	},
}

// loadSpoofCatalog returns the pattern catalog from the --patterns flag,
// the configured file, or the built-in defaults.
func loadSpoofCatalog() (*spoof.Catalog, error) {
	path := spoofPatterns
	if path == "" {
		path = appConfig.Spoof.PatternsFile
	}
	if path == "" {
		return spoof.DefaultCatalog(), nil
	}
	return spoof.LoadCatalog(path)
}

// ensureSpoofCapable fails fast when the device cannot take property
// writes, before any identity is applied.
func ensureSpoofCapable(ctx context.Context, probe *adb.Probe, deviceID string) error {
	caps, err := probe.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	return spoof.CheckCapabilities(caps)
}

// newSpoofGenerator builds an identity generator honoring the configured
// property group toggles.
func newSpoofGenerator(catalog *spoof.Catalog) *spoof.Generator {
	generator := spoof.NewGenerator(catalog, 0)
	generator.Groups = spoof.Groups{
		Fingerprint:    appConfig.Spoof.SpoofFingerprint,
		Serial:         appConfig.Spoof.SpoofSerial,
		DeviceIdentity: appConfig.Spoof.SpoofDeviceIdentity,
		VersionProps:   appConfig.Spoof.SpoofVersionProps,
	}
	return generator
}

// newSpoofEngine builds a property engine with the configured policy.
func newSpoofEngine(runner adb.Runner, catalog *spoof.Catalog) *spoof.Engine {
	engine := spoof.NewEngine(runner, logger)
	engine.RequireVerification = appConfig.Spoof.RequireVerification
	engine.BackupEnabled = appConfig.Spoof.BackupOriginalProperties
	engine.CandidateProps = catalog.SpoofProps()
	engine.Timeout = time.Duration(appConfig.ADB.PropertyTimeoutSeconds) * time.Second
	return engine
}

func printIdentity(id *spoof.Identity) {
	fmt.Printf("  manufacturer: %s\n", id.Manufacturer)
	fmt.Printf("  model:        %s (%s/%s)\n", id.Model, id.Device, id.Product)
	fmt.Printf("  android:      %s (SDK %d)\n", id.Release, id.SDK)
	fmt.Printf("  build id:     %s\n", id.BuildID)
	fmt.Printf("  fingerprint:  %s\n", id.Fingerprint)
	fmt.Printf("  serial:       %s\n", id.Serial)
	fmt.Printf("  properties:   %d\n", len(id.Props))
}

func init() {
	rootCmd.AddCommand(spoofCmd)

	spoofCmd.Flags().StringVarP(&spoofManufacturer, "manufacturer", "m", "",
		"manufacturer profile to mimic (samsung, google, xiaomi, oneplus, oppo)")
	spoofCmd.Flags().StringVar(&spoofVersion, "android-version", "",
		"Android release to mimic (10-14)")
	spoofCmd.Flags().StringVar(&spoofModel, "model", "",
		"prefer a catalog device whose model matches this text")
	spoofCmd.Flags().StringVar(&spoofPatterns, "patterns", "",
		"device pattern catalog file (yaml or toml)")
	spoofCmd.Flags().BoolVar(&spoofDryRun, "dry-run", false,
		"show generated values without applying them")
	spoofCmd.Flags().BoolVar(&spoofAndroidID, "android-id", false,
		"also randomize the Android ID of the current user")
}
