package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore original device properties from backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		runner := newRunner()
		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		catalog, err := loadSpoofCatalog()
		if err != nil {
			return err
		}
		engine := newSpoofEngine(runner, catalog)

		saved, err := loadBackupState(deviceID)
		if err != nil {
			return err
		}
		engine.SeedBackups(deviceID, saved)

		if engine.BackupEnabled && len(engine.Backups(deviceID)) == 0 {
			fmt.Println(i18n.T("cmd.restore.nothing"))
			return nil
		}

		restored, err := engine.RestoreAll(ctx, deviceID)
		if err != nil {
			// Keep the unrestored originals for another attempt.
			if saveErr := saveBackupState(deviceID, engine.Backups(deviceID)); saveErr != nil {
				logger.Warn().Err(saveErr).Str("device", deviceID).Msg("could not persist remaining backups")
			}
			return err
		}

		if err := clearBackupState(deviceID); err != nil {
			logger.Warn().Err(err).Str("device", deviceID).Msg("could not remove backup state file")
		}

		fmt.Println(i18n.T("cmd.restore.done", map[string]interface{}{
			"Count": restored,
		}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
