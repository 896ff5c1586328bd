package adb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Device represents a connected device with detailed information
type Device struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Model        string    `json:"model"`
	Product      string    `json:"product"`
	Device       string    `json:"device"`
	Transport    string    `json:"transport"`
	AndroidAPI   int       `json:"android_api"`
	AndroidVer   string    `json:"android_version"`
	Manufacturer string    `json:"manufacturer"`
	Brand        string    `json:"brand"`
	LastSeen     time.Time `json:"last_seen"`
	IsEmulator   bool      `json:"is_emulator"`
}

// DeviceStatus represents device connection status
type DeviceStatus struct {
	Online       []Device `json:"online"`
	Offline      []Device `json:"offline"`
	Unauthorized []Device `json:"unauthorized"`
	Total        int      `json:"total"`
}

// ListDevices returns the connected devices with detailed information.
func ListDevices(ctx context.Context, runner Runner) ([]Device, error) {
	res := runner.Run(ctx, "", []string{"devices", "-l"}, DefaultOptions(15*time.Second))
	if !res.OK() {
		return nil, fmt.Errorf("failed to run adb devices: %s", res.Combined())
	}

	var devices []Device
	lines := strings.Split(res.Stdout, "\n")

	for _, line := range lines[1:] { // Skip header
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		device := Device{
			ID:       parts[0],
			Status:   parts[1],
			LastSeen: time.Now(),
		}

		device.IsEmulator = strings.Contains(strings.ToLower(device.ID), "emulator")

		for _, part := range parts[2:] {
			if strings.HasPrefix(part, "model:") {
				device.Model = strings.TrimPrefix(part, "model:")
			} else if strings.HasPrefix(part, "product:") {
				device.Product = strings.TrimPrefix(part, "product:")
			} else if strings.HasPrefix(part, "device:") {
				device.Device = strings.TrimPrefix(part, "device:")
			} else if strings.HasPrefix(part, "transport_id:") {
				device.Transport = strings.TrimPrefix(part, "transport_id:")
			}
		}

		if device.Status == "device" {
			enrichDeviceInfo(ctx, runner, &device)
		}

		devices = append(devices, device)
	}

	return devices, nil
}

// enrichDeviceInfo adds property-derived information to an online device
func enrichDeviceInfo(ctx context.Context, runner Runner, device *Device) {
	if apiLevel := getProperty(ctx, runner, device.ID, "ro.build.version.sdk"); apiLevel != "" {
		if api, err := strconv.Atoi(apiLevel); err == nil {
			device.AndroidAPI = api
		}
	}

	device.AndroidVer = getProperty(ctx, runner, device.ID, "ro.build.version.release")
	device.Manufacturer = getProperty(ctx, runner, device.ID, "ro.product.manufacturer")
	device.Brand = getProperty(ctx, runner, device.ID, "ro.product.brand")

	if device.Model == "" {
		device.Model = getProperty(ctx, runner, device.ID, "ro.product.model")
	}
}

// getProperty reads a system property, returning "" on any failure.
func getProperty(ctx context.Context, runner Runner, deviceID, property string) string {
	res := runner.Shell(ctx, deviceID, []string{"getprop", property}, DefaultOptions(10*time.Second))
	if !res.OK() {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// GetDeviceStatus returns categorized device status
func GetDeviceStatus(ctx context.Context, runner Runner) (*DeviceStatus, error) {
	devices, err := ListDevices(ctx, runner)
	if err != nil {
		return nil, err
	}

	status := &DeviceStatus{
		Online:       []Device{},
		Offline:      []Device{},
		Unauthorized: []Device{},
		Total:        len(devices),
	}

	for _, device := range devices {
		switch device.Status {
		case "device":
			status.Online = append(status.Online, device)
		case "offline":
			status.Offline = append(status.Offline, device)
		case "unauthorized":
			status.Unauthorized = append(status.Unauthorized, device)
		}
	}

	return status, nil
}

// ValidateOnline checks that the device is connected and authorized.
func ValidateOnline(ctx context.Context, runner Runner, deviceID string) error {
	devices, err := ListDevices(ctx, runner)
	if err != nil {
		return fmt.Errorf("failed to get device list: %w", err)
	}

	for _, device := range devices {
		if device.ID == deviceID {
			switch device.Status {
			case "device":
				return nil
			case "offline":
				return fmt.Errorf("device %s is offline", deviceID)
			case "unauthorized":
				return fmt.Errorf("device %s is unauthorized - please allow USB debugging", deviceID)
			default:
				return fmt.Errorf("device %s has status: %s", deviceID, device.Status)
			}
		}
	}

	return fmt.Errorf("device %s not found", deviceID)
}

// FormatDeviceName returns a user-friendly device name
func FormatDeviceName(device Device) string {
	if device.Model != "" {
		if device.IsEmulator {
			return fmt.Sprintf("%s (Emulator: %s)", device.Model, device.ID)
		}
		return fmt.Sprintf("%s (%s)", device.Model, device.ID)
	}

	if device.IsEmulator {
		return fmt.Sprintf("Emulator (%s)", device.ID)
	}

	return device.ID
}
