package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// backupState is the on-disk record of original property values for one
// device, so restore works across runs.
type backupState struct {
	DeviceID  string            `json:"device_id"`
	Originals map[string]string `json:"originals"`
}

func backupStatePath(deviceID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, deviceID)

	return filepath.Join(home, ".apkspoof", "backups", safe+".json"), nil
}

// saveBackupState writes the device's recorded originals to disk.
func saveBackupState(deviceID string, originals map[string]string) error {
	if len(originals) == 0 {
		return nil
	}

	path, err := backupStatePath(deviceID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(backupState{DeviceID: deviceID, Originals: originals}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// loadBackupState reads previously saved originals; a missing file
// returns an empty map.
func loadBackupState(deviceID string) (map[string]string, error) {
	path, err := backupStatePath(deviceID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	var state backupState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Originals == nil {
		state.Originals = map[string]string{}
	}
	return state.Originals, nil
}

// clearBackupState removes the on-disk record after a full restore.
func clearBackupState(deviceID string) error {
	path, err := backupStatePath(deviceID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
