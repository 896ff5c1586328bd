// Package bundle handles split APK bundles (XAPK, APKS, APKM, ZIP):
// extraction, split classification, and device-aware split selection.
package bundle

import (
	"path/filepath"
	"strings"
)

// SplitKind classifies a split APK by its configuration qualifier.
type SplitKind int

const (
	KindBase SplitKind = iota
	KindABI
	KindDensity
	KindLanguage
	KindUnknown
)

func (k SplitKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindABI:
		return "abi"
	case KindDensity:
		return "density"
	case KindLanguage:
		return "language"
	default:
		return "unknown"
	}
}

// SplitFile is one APK inside a bundle.
type SplitFile struct {
	Path      string    `json:"path"` // absolute path after extraction
	Name      string    `json:"name"` // file name inside the bundle
	Kind      SplitKind `json:"kind"`
	Qualifier string    `json:"qualifier"` // abi, dpi bucket, or language code
	Size      int64     `json:"size"`
}

// OBBFile is an expansion file and its install location on the device.
type OBBFile struct {
	LocalPath   string `json:"local_path"`
	Name        string `json:"name"`
	InstallPath string `json:"install_path,omitempty"` // from the manifest, may be empty
	Size        int64  `json:"size"`
}

// Bundle is an extracted split bundle ready for selection and install.
type Bundle struct {
	SourcePath  string      `json:"source_path"`
	ExtractDir  string      `json:"extract_dir"`
	PackageID   string      `json:"package_id"`
	Name        string      `json:"name"`
	VersionName string      `json:"version_name"`
	VersionCode int64       `json:"version_code"`
	MinSDK      int         `json:"min_sdk"`
	Splits      []SplitFile `json:"splits"`
	OBBs        []OBBFile   `json:"obbs"`
}

// Base returns the split classified as the base APK.
func (b *Bundle) Base() (SplitFile, bool) {
	for _, s := range b.Splits {
		if s.Kind == KindBase {
			return s, true
		}
	}
	return SplitFile{}, false
}

// AllPaths returns the extracted paths of every split, base first.
func (b *Bundle) AllPaths() []string {
	paths := make([]string, 0, len(b.Splits))
	if base, ok := b.Base(); ok {
		paths = append(paths, base.Path)
	}
	for _, s := range b.Splits {
		if s.Kind != KindBase {
			paths = append(paths, s.Path)
		}
	}
	return paths
}

var abiQualifiers = map[string]string{
	"arm64_v8a":   "arm64-v8a",
	"arm64-v8a":   "arm64-v8a",
	"armeabi_v7a": "armeabi-v7a",
	"armeabi-v7a": "armeabi-v7a",
	"armeabi":     "armeabi",
	"x86":         "x86",
	"x86_64":      "x86_64",
	"x86-64":      "x86_64",
	"mips":        "mips",
	"mips64":      "mips64",
}

var densityQualifiers = map[string]bool{
	"ldpi": true, "mdpi": true, "tvdpi": true, "hdpi": true,
	"xhdpi": true, "xxhdpi": true, "xxxhdpi": true, "nodpi": true,
}

// classifySplit determines the kind and qualifier of a split from its
// file name. Names follow the config.<qualifier>.apk and
// split_config.<qualifier>.apk conventions; anything unrecognized is
// kept as unknown so it is never silently dropped.
func classifySplit(name string) (SplitKind, string) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	lower := strings.ToLower(base)

	if lower == "base" {
		return KindBase, ""
	}

	qualifier := lower
	for _, prefix := range []string{"split_config.", "config."} {
		if strings.HasPrefix(lower, prefix) {
			qualifier = strings.TrimPrefix(lower, prefix)
			break
		}
	}
	// Names like com.example.app.config.xxhdpi.apk
	if idx := strings.LastIndex(lower, ".config."); idx >= 0 {
		qualifier = lower[idx+len(".config."):]
	}

	if qualifier == lower {
		// No config marker at all: treat the trailing token after the
		// last dot as a candidate qualifier (split.xxhdpi.apk style).
		if idx := strings.LastIndex(lower, "."); idx >= 0 {
			qualifier = lower[idx+1:]
		}
	}

	if canonical, ok := abiQualifiers[qualifier]; ok {
		return KindABI, canonical
	}
	if densityQualifiers[qualifier] {
		return KindDensity, qualifier
	}
	if isLanguageCode(qualifier) {
		return KindLanguage, qualifier
	}

	return KindUnknown, ""
}

// isLanguageCode matches two letter language qualifiers, optionally
// with a region (en, en_us, zh_cn).
func isLanguageCode(q string) bool {
	parts := strings.SplitN(q, "_", 2)
	lang := parts[0]
	if len(lang) != 2 {
		return false
	}
	for _, r := range lang {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	if len(parts) == 2 {
		region := parts[1]
		if len(region) < 2 || len(region) > 4 {
			return false
		}
	}
	return true
}
