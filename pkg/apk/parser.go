// Package apk extracts package metadata from APK files.
package apk

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"

	"github.com/shogo82148/androidbinary/apk"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
)

// Info holds the manifest fields needed for installation decisions.
type Info struct {
	PackageID   string   `json:"package_id"`
	AppName     string   `json:"app_name"`
	Version     string   `json:"version"`
	VersionCode int64    `json:"version_code"`
	MinSDK      int      `json:"min_sdk"`
	TargetSDK   int      `json:"target_sdk"`
	SplitName   string   `json:"split_name,omitempty"`
	ABIs        []string `json:"abis"`
	Size        int64    `json:"size"`
}

// Parse reads the binary manifest of an APK file.
func Parse(apkPath string) (*Info, error) {
	pkg, err := apk.OpenFile(apkPath)
	if err != nil {
		return nil, apkerrors.Wrap(err, apkerrors.ErrorTypeParsing, "APK_OPEN_FAILED",
			"failed to open APK: "+filepath.Base(apkPath))
	}
	defer pkg.Close()

	fileInfo, err := os.Stat(apkPath)
	if err != nil {
		return nil, err
	}

	manifest := pkg.Manifest()

	info := &Info{
		PackageID:   manifest.Package.MustString(),
		Version:     manifest.VersionName.MustString(),
		VersionCode: int64(manifest.VersionCode.MustInt32()),
		Size:        fileInfo.Size(),
		ABIs:        extractABIs(apkPath),
	}

	if label, err := pkg.Label(nil); err == nil {
		info.AppName = label
	}
	if info.AppName == "" {
		info.AppName = info.PackageID
	}

	if minSDK, err := manifest.SDK.Min.Int32(); err == nil {
		info.MinSDK = int(minSDK)
	}
	if targetSDK, err := manifest.SDK.Target.Int32(); err == nil {
		info.TargetSDK = int(targetSDK)
	}

	if info.PackageID == "" {
		return nil, apkerrors.NewValidationError("APK_NO_PACKAGE",
			"APK manifest has no package name: "+filepath.Base(apkPath))
	}

	return info, nil
}

// PackageID returns only the package name of an APK. Cheaper callers that
// need just the ID use this instead of Parse.
func PackageID(apkPath string) (string, error) {
	info, err := Parse(apkPath)
	if err != nil {
		return "", err
	}
	return info.PackageID, nil
}

// IsAPK reports whether path looks like a plain APK by extension.
func IsAPK(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".apk")
}

// extractABIs lists the native library architectures bundled in the APK.
func extractABIs(apkPath string) []string {
	reader, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil
	}
	defer reader.Close()

	abiMap := make(map[string]bool)
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "lib/") {
			parts := strings.Split(file.Name, "/")
			if len(parts) >= 2 {
				abiMap[parts[1]] = true
			}
		}
	}

	var abis []string
	for abi := range abiMap {
		abis = append(abis, abi)
	}

	return abis
}
