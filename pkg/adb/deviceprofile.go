package adb

import (
	"context"
	"strconv"
	"strings"
	"time"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
)

// DeviceProfile captures the hardware traits that drive split selection.
type DeviceProfile struct {
	DeviceID     string   `json:"device_id"`
	Brand        string   `json:"brand"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Product      string   `json:"product"`
	SDK          int      `json:"sdk"`
	Release      string   `json:"release"`
	ABIs         []string `json:"abis"`
	Density      int      `json:"density"`
	Locale       string   `json:"locale"`
}

// ReadDeviceProfile collects the properties used for split matching and
// spoof generation. Missing optional properties are left zero.
func ReadDeviceProfile(ctx context.Context, runner Runner, deviceID string) (*DeviceProfile, error) {
	profile := &DeviceProfile{DeviceID: deviceID}

	sdkVal := getProperty(ctx, runner, deviceID, "ro.build.version.sdk")
	if sdkVal == "" {
		return nil, apkerrors.NewDeviceError("PROFILE_READ_FAILED",
			"cannot read device properties, device may be offline")
	}
	if sdk, err := strconv.Atoi(sdkVal); err == nil {
		profile.SDK = sdk
	}

	profile.Release = getProperty(ctx, runner, deviceID, "ro.build.version.release")
	profile.Brand = getProperty(ctx, runner, deviceID, "ro.product.brand")
	profile.Manufacturer = getProperty(ctx, runner, deviceID, "ro.product.manufacturer")
	profile.Model = getProperty(ctx, runner, deviceID, "ro.product.model")
	profile.Product = getProperty(ctx, runner, deviceID, "ro.product.name")

	abiList := getProperty(ctx, runner, deviceID, "ro.product.cpu.abilist")
	if abiList == "" {
		abiList = getProperty(ctx, runner, deviceID, "ro.product.cpu.abi")
	}
	for _, abi := range strings.Split(abiList, ",") {
		abi = strings.TrimSpace(abi)
		if abi != "" {
			profile.ABIs = append(profile.ABIs, abi)
		}
	}

	profile.Density = readDensity(ctx, runner, deviceID)

	locale := getProperty(ctx, runner, deviceID, "persist.sys.locale")
	if locale == "" {
		locale = getProperty(ctx, runner, deviceID, "ro.product.locale")
	}
	profile.Locale = locale

	return profile, nil
}

// readDensity parses `wm density`, preferring an override density when set.
func readDensity(ctx context.Context, runner Runner, deviceID string) int {
	res := runner.Shell(ctx, deviceID, []string{"wm", "density"}, DefaultOptions(10*time.Second))
	if !res.OK() {
		return 0
	}

	density := 0
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		var val string
		switch {
		case strings.HasPrefix(line, "Override density:"):
			val = strings.TrimSpace(strings.TrimPrefix(line, "Override density:"))
		case strings.HasPrefix(line, "Physical density:"):
			if density != 0 {
				continue // override already seen
			}
			val = strings.TrimSpace(strings.TrimPrefix(line, "Physical density:"))
		default:
			continue
		}
		if n, err := strconv.Atoi(val); err == nil {
			density = n
		}
	}

	return density
}

// DPIBucket maps the device density to the Android resource qualifier
// used by density splits.
func (p *DeviceProfile) DPIBucket() string {
	switch d := p.Density; {
	case d <= 0:
		return "nodpi"
	case d <= 120:
		return "ldpi"
	case d <= 160:
		return "mdpi"
	case d <= 213:
		return "tvdpi"
	case d <= 240:
		return "hdpi"
	case d <= 320:
		return "xhdpi"
	case d <= 480:
		return "xxhdpi"
	case d <= 640:
		return "xxxhdpi"
	default:
		return "nodpi"
	}
}

// Language returns the two-letter language code of the device locale,
// or "" when unknown.
func (p *DeviceProfile) Language() string {
	if p.Locale == "" {
		return ""
	}
	lang := p.Locale
	for _, sep := range []string{"-", "_"} {
		if idx := strings.Index(lang, sep); idx >= 0 {
			lang = lang[:idx]
		}
	}
	return strings.ToLower(lang)
}
