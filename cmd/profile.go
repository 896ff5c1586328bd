package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/profile"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/spoof"
)

var (
	profileName      string
	profileEphemeral bool
	profileSpoof     bool
	profileAndroidID bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage Android user profiles",
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user profile and switch to it",
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
		probe := adb.NewProbe(runner)
		mgr := profile.NewManager(runner, probe, engine, logger, profileOptions())

		if profileSpoof {
			if err := ensureSpoofCapable(ctx, probe, deviceID); err != nil {
				return err
			}
		}

		ephemeral := profileEphemeral
		if !cmd.Flags().Changed("ephemeral") {
			ephemeral = appConfig.Profiles.UseEphemeralUsers
		}

		user, err := mgr.Create(ctx, deviceID, profileName, ephemeral)
		if err != nil {
			return err
		}

		fmt.Println(i18n.T("cmd.profile.created", map[string]interface{}{
			"ID":   user.ID,
			"Name": user.Name,
		}))
		fmt.Println(i18n.T("cmd.profile.switched", map[string]interface{}{
			"ID": user.ID,
		}))

		generator := newSpoofGenerator(catalog)

		if profileAndroidID {
			newID, err := engine.RandomizeAndroidID(ctx, deviceID, user.ID, generator.AndroidID())
			if err != nil {
				return err
			}
			fmt.Printf("android_id (user %d): %s\n", user.ID, newID)
		}

		if profileSpoof {
			// Random manufacturer and version, so profiles do not share
			// a fingerprint.
			identity, err := generator.Generate("", "")
			if err != nil {
				return err
			}

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
		}

		return nil
	},
}

var profileSwitchCmd = &cobra.Command{
	Use:   "switch <user-id>",
	Short: "Switch to an existing user profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		userID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		runner := newRunner()
		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		mgr := newProfileManager(runner)
		if err := mgr.Switch(ctx, deviceID, userID); err != nil {
			return err
		}

		fmt.Println(i18n.T("cmd.profile.switched", map[string]interface{}{
			"ID": userID,
		}))
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a user profile and its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		userID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		runner := newRunner()
		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		mgr := newProfileManager(runner)
		if err := mgr.Remove(ctx, deviceID, userID); err != nil {
			return err
		}

		fmt.Println(i18n.T("cmd.profile.removed", map[string]interface{}{
			"ID": userID,
		}))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user profiles on the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		runner := newRunner()
		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		mgr := newProfileManager(runner)
		users, err := mgr.List(ctx, deviceID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRUNNING\tCURRENT")
		for _, u := range users {
			running := ""
			if u.Running {
				running = "yes"
			}
			current := ""
			if u.Current {
				current = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, running, current)
		}
		w.Flush()
		return nil
	},
}

// profileOptions maps the configured profile settings.
func profileOptions() profile.Options {
	return profile.Options{
		BypassUserLimit: appConfig.Profiles.BypassUserLimit,
		DefaultMaxUsers: appConfig.Profiles.DefaultMaxUsers,
		MinStorageMB:    appConfig.Profiles.MinStorageMB,
		CreateAttempts:  appConfig.Profiles.CreateAttempts,
		SwitchWait:      time.Duration(appConfig.Profiles.SwitchWaitSeconds) * time.Second,
	}
}

func newProfileManager(runner adb.Runner) *profile.Manager {
	catalog := spoof.DefaultCatalog()
	engine := newSpoofEngine(runner, catalog)
	return profile.NewManager(runner, adb.NewProbe(runner), engine, logger, profileOptions())
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileSwitchCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	profileCmd.AddCommand(profileListCmd)

	profileCreateCmd.Flags().StringVarP(&profileName, "name", "n", "",
		"name for the new user (default: profile-<timestamp>)")
	profileCreateCmd.Flags().BoolVar(&profileEphemeral, "ephemeral", false,
		"create an ephemeral user, removed on switch-away (Android 8+)")
	profileCreateCmd.Flags().BoolVar(&profileSpoof, "spoof", false,
		"apply a random device identity after switching")
	profileCreateCmd.Flags().BoolVar(&profileAndroidID, "android-id", true,
		"randomize the Android ID of the new user")
}
