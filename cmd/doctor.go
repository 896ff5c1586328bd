package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe device capabilities and report readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		runner := newRunner()

		// adb itself first; nothing else works without it.
		res := runner.Run(ctx, "", []string{"version"}, adb.DefaultOptions(shellTimeout()))
		if !res.OK() {
			return apkerrors.NewNotFoundError("ADB_NOT_FOUND",
				"adb is not runnable: "+res.Combined()).
				WithSuggestion("Install Android platform-tools and put adb on PATH").
				WithSuggestion("Or set adb.path in the configuration file")
		}
		fmt.Printf("✅ %s\n\n", firstLine(res.Stdout))

		deviceID, err := resolveDevice(ctx, runner)
		if err != nil {
			return err
		}

		fmt.Println(i18n.T("cmd.doctor.header", map[string]interface{}{
			"Device": deviceID,
		}))

		caps, err := adb.NewProbe(runner).Detect(ctx, deviceID)
		if err != nil {
			return err
		}

		fmt.Printf("  SDK:             %d\n", caps.SDK)
		fmt.Printf("  Root:            %s\n", yesNo(caps.Root))
		fmt.Printf("  resetprop:       %s\n", yesNo(caps.Resetprop))
		fmt.Printf("  Multi-user:      %s (max %d)\n", yesNo(caps.MultiUser), caps.MaxUsers)
		fmt.Printf("  Ephemeral users: %s\n", yesNo(caps.EphemeralUsers))

		if !caps.Root {
			fmt.Println("\n💡 Property spoofing needs root; install/profile features still work")
		} else if !caps.Resetprop {
			fmt.Println("\n💡 resetprop not found; install Magisk or another provider of it")
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
