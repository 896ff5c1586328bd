package bundle

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/apk"
)

// Manifest represents the manifest.json found in XAPK files. Stores emit
// version fields as either numbers or strings, so they use flexInt.
type Manifest struct {
	PackageName      string  `json:"package_name"`
	Name             string  `json:"name"`
	VersionCode      flexInt `json:"version_code"`
	VersionName      string  `json:"version_name"`
	MinSDKVersion    flexInt `json:"min_sdk_version"`
	TargetSDKVersion flexInt `json:"target_sdk_version"`
	SplitAPKs        []struct {
		File string `json:"file"`
		ID   string `json:"id"`
	} `json:"split_apks"`
	Expansions []struct {
		File        string `json:"file"`
		InstallPath string `json:"install_path"`
	} `json:"expansions"`
}

// flexInt decodes JSON numbers and numeric strings alike.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// IsBundle reports whether the path looks like a split bundle by extension.
func IsBundle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xapk", ".apks", ".apkm", ".zip":
		return true
	}
	return false
}

// Extract unpacks a bundle into a fresh directory under workDir and
// classifies its contents. The caller owns the returned ExtractDir and
// should remove it when done.
func Extract(bundlePath, workDir string) (*Bundle, error) {
	if _, err := os.Stat(bundlePath); err != nil {
		return nil, apkerrors.NewNotFoundError("BUNDLE_NOT_FOUND",
			"bundle not accessible: "+bundlePath)
	}

	reader, err := zip.OpenReader(bundlePath)
	if err != nil {
		return nil, apkerrors.Wrap(err, apkerrors.ErrorTypeParsing, "BUNDLE_NOT_ZIP",
			"failed to open bundle (not a valid zip): "+filepath.Base(bundlePath))
	}
	defer reader.Close()

	if workDir == "" {
		workDir = os.TempDir()
	}
	extractDir := filepath.Join(workDir, "bundle-"+uuid.NewString())
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return nil, err
	}

	b := &Bundle{
		SourcePath: bundlePath,
		ExtractDir: extractDir,
	}

	var manifest *Manifest
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name := file.Name
		lower := strings.ToLower(name)
		baseName := filepath.Base(name)

		switch {
		case baseName == "manifest.json" || baseName == "info.json":
			if manifest == nil {
				manifest = readManifest(file)
			}
			continue
		case strings.HasSuffix(lower, ".apk"):
			dest, err := extractEntry(file, extractDir)
			if err != nil {
				os.RemoveAll(extractDir)
				return nil, err
			}
			kind, qualifier := classifySplit(name)
			b.Splits = append(b.Splits, SplitFile{
				Path:      dest,
				Name:      baseName,
				Kind:      kind,
				Qualifier: qualifier,
				Size:      int64(file.UncompressedSize64),
			})
		case strings.HasSuffix(lower, ".obb"):
			dest, err := extractEntry(file, extractDir)
			if err != nil {
				os.RemoveAll(extractDir)
				return nil, err
			}
			b.OBBs = append(b.OBBs, OBBFile{
				LocalPath: dest,
				Name:      baseName,
				Size:      int64(file.UncompressedSize64),
			})
		}
	}

	if len(b.Splits) == 0 {
		os.RemoveAll(extractDir)
		return nil, apkerrors.NewValidationError("BUNDLE_NO_APKS",
			"no APK files found in bundle: "+filepath.Base(bundlePath))
	}

	ensureBase(b, manifest)
	applyManifest(b, manifest)

	if b.PackageID == "" {
		if base, ok := b.Base(); ok {
			if info, err := apk.Parse(base.Path); err == nil {
				b.PackageID = info.PackageID
				if b.Name == "" {
					b.Name = info.AppName
				}
				if b.VersionName == "" {
					b.VersionName = info.Version
				}
				if b.VersionCode == 0 {
					b.VersionCode = info.VersionCode
				}
				if b.MinSDK == 0 {
					b.MinSDK = info.MinSDK
				}
			}
		}
	}

	if b.PackageID == "" {
		os.RemoveAll(extractDir)
		return nil, apkerrors.NewValidationError("BUNDLE_NO_PACKAGE",
			"cannot determine package name from manifest or base APK")
	}

	return b, nil
}

// Cleanup removes the extraction directory.
func (b *Bundle) Cleanup() error {
	if b.ExtractDir == "" {
		return nil
	}
	return os.RemoveAll(b.ExtractDir)
}

func readManifest(file *zip.File) *Manifest {
	rc, err := file.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}

	return &m
}

// ensureBase guarantees exactly one split is classified as base.
// Preference order: manifest entry with id "base", a literal base.apk,
// the largest non-config split, then the largest split overall.
func ensureBase(b *Bundle, manifest *Manifest) {
	if _, ok := b.Base(); ok {
		return
	}

	if manifest != nil {
		for _, entry := range manifest.SplitAPKs {
			if entry.ID != "base" {
				continue
			}
			for i := range b.Splits {
				if b.Splits[i].Name == filepath.Base(entry.File) {
					b.Splits[i].Kind = KindBase
					b.Splits[i].Qualifier = ""
					return
				}
			}
		}
	}

	bestIdx := -1
	var bestSize int64 = -1
	for i, s := range b.Splits {
		if s.Kind != KindUnknown {
			continue
		}
		if s.Size > bestSize {
			bestIdx, bestSize = i, s.Size
		}
	}
	if bestIdx < 0 {
		for i, s := range b.Splits {
			if s.Size > bestSize {
				bestIdx, bestSize = i, s.Size
			}
		}
	}
	if bestIdx >= 0 {
		b.Splits[bestIdx].Kind = KindBase
		b.Splits[bestIdx].Qualifier = ""
	}
}

func applyManifest(b *Bundle, manifest *Manifest) {
	if manifest == nil {
		return
	}

	b.PackageID = manifest.PackageName
	b.Name = manifest.Name
	b.VersionName = manifest.VersionName
	b.VersionCode = int64(manifest.VersionCode)
	b.MinSDK = int(manifest.MinSDKVersion)

	for _, exp := range manifest.Expansions {
		for i := range b.OBBs {
			if b.OBBs[i].Name == filepath.Base(exp.File) {
				b.OBBs[i].InstallPath = exp.InstallPath
			}
		}
	}
}

// extractEntry writes one zip entry under destDir, flattening any
// directory structure and refusing paths that escape the destination.
func extractEntry(file *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Base(file.Name))
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", apkerrors.NewValidationError("BUNDLE_BAD_ENTRY",
			"bundle entry escapes extraction directory: "+file.Name)
	}

	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", err
	}

	return destPath, nil
}
