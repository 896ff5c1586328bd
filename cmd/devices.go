package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices with model and Android version",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := newRunner()
		status, err := adb.GetDeviceStatus(context.Background(), runner)
		if err != nil {
			return err
		}

		if devicesJSON {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if status.Total == 0 {
			fmt.Println(i18n.T("cmd.devices.none"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE ID\tSTATUS\tMODEL\tANDROID\tTYPE")

		all := append(append(append([]adb.Device{}, status.Online...),
			status.Offline...), status.Unauthorized...)
		for _, d := range all {
			deviceType := "device"
			if d.IsEmulator {
				deviceType = "emulator"
			}
			android := d.AndroidVer
			if d.AndroidAPI > 0 {
				android = fmt.Sprintf("%s (API %d)", d.AndroidVer, d.AndroidAPI)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Model, android, deviceType)
		}
		w.Flush()

		fmt.Printf("\n%d total, %d online\n", status.Total, len(status.Online))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "output as JSON")
}
