// Package spoof generates coherent device identities and applies them to
// rooted devices via resetprop, with backup and restore of the originals.
package spoof

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
)

// DevicePattern is one concrete device of a manufacturer.
type DevicePattern struct {
	Model   string `yaml:"model" toml:"model"`
	Device  string `yaml:"device" toml:"device"`
	Product string `yaml:"product" toml:"product"`
}

// ManufacturerPattern describes how a manufacturer names its devices,
// serials, and firmware builds.
type ManufacturerPattern struct {
	Brand            string          `yaml:"brand" toml:"brand"`
	Manufacturer     string          `yaml:"manufacturer" toml:"manufacturer"`
	Devices          []DevicePattern `yaml:"devices" toml:"devices"`
	SerialPattern    string          `yaml:"serial_pattern" toml:"serial_pattern"`
	IncrementalStyle string          `yaml:"incremental_style" toml:"incremental_style"` // numeric, firmware
}

// VersionPattern describes one Android release.
type VersionPattern struct {
	Release     string `yaml:"release" toml:"release"`
	SDK         int    `yaml:"sdk" toml:"sdk"`
	BuildPrefix string `yaml:"build_prefix" toml:"build_prefix"`
}

// Catalog holds the device patterns used for identity generation.
// PropsToSpoof is a pointer so an explicitly empty list in a catalog file
// is honored instead of replaced by the default set.
type Catalog struct {
	Manufacturers   map[string]ManufacturerPattern `yaml:"manufacturers" toml:"manufacturers"`
	AndroidVersions map[string]VersionPattern      `yaml:"android_versions" toml:"android_versions"`
	PropsToSpoof    *[]string                      `yaml:"props_to_spoof" toml:"props_to_spoof"`
}

// DefaultSpoofProps are the properties rewritten when a catalog does not
// name its own list.
var DefaultSpoofProps = []string{
	"ro.product.brand",
	"ro.product.manufacturer",
	"ro.product.model",
	"ro.product.device",
	"ro.product.name",
	"ro.build.fingerprint",
	"ro.vendor.build.fingerprint",
	"ro.system.build.fingerprint",
	"ro.odm.build.fingerprint",
	"ro.build.id",
	"ro.build.display.id",
	"ro.build.version.incremental",
	"ro.build.version.release",
	"ro.build.version.sdk",
	"ro.build.description",
	"ro.build.type",
	"ro.build.tags",
	"ro.build.host",
	"ro.build.user",
	"ro.build.date",
	"ro.build.date.utc",
	"ro.serialno",
	"ro.boot.serialno",
}

// SpoofProps returns the property list this catalog covers.
func (c *Catalog) SpoofProps() []string {
	if c.PropsToSpoof != nil {
		return *c.PropsToSpoof
	}
	return DefaultSpoofProps
}

// DefaultCatalog returns the built-in manufacturer and version patterns.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Manufacturers: map[string]ManufacturerPattern{
			"samsung": {
				Brand:        "samsung",
				Manufacturer: "samsung",
				Devices: []DevicePattern{
					{Model: "SM-S908B", Device: "b0q", Product: "b0qxxx"},
					{Model: "SM-S918B", Device: "dm3q", Product: "dm3qxxx"},
					{Model: "SM-G998B", Device: "p3s", Product: "p3sxxx"},
				},
				SerialPattern:    "R{8}",
				IncrementalStyle: "firmware",
			},
			"google": {
				Brand:        "google",
				Manufacturer: "Google",
				Devices: []DevicePattern{
					{Model: "Pixel 8 Pro", Device: "husky", Product: "husky"},
					{Model: "Pixel 7", Device: "panther", Product: "panther"},
					{Model: "Pixel 6", Device: "oriole", Product: "oriole"},
				},
				SerialPattern:    "{2}A{3}{6}",
				IncrementalStyle: "numeric",
			},
			"xiaomi": {
				Brand:        "Xiaomi",
				Manufacturer: "Xiaomi",
				Devices: []DevicePattern{
					{Model: "2201123G", Device: "veux", Product: "veux_global"},
					{Model: "23049PCD8G", Device: "redwood", Product: "redwood_global"},
				},
				SerialPattern:    "{10}",
				IncrementalStyle: "numeric",
			},
			"oneplus": {
				Brand:        "OnePlus",
				Manufacturer: "OnePlus",
				Devices: []DevicePattern{
					{Model: "CPH2449", Device: "OP5943L1", Product: "CPH2449"},
					{Model: "NE2213", Device: "OP516FL1", Product: "NE2213"},
				},
				SerialPattern:    "{16}",
				IncrementalStyle: "numeric",
			},
			"oppo": {
				Brand:        "OPPO",
				Manufacturer: "OPPO",
				Devices: []DevicePattern{
					{Model: "CPH2371", Device: "OP4F2FL1", Product: "CPH2371"},
				},
				SerialPattern:    "{12}",
				IncrementalStyle: "numeric",
			},
		},
		AndroidVersions: map[string]VersionPattern{
			"10": {Release: "10", SDK: 29, BuildPrefix: "QQ3A"},
			"11": {Release: "11", SDK: 30, BuildPrefix: "RQ3A"},
			"12": {Release: "12", SDK: 31, BuildPrefix: "SQ3A"},
			"13": {Release: "13", SDK: 33, BuildPrefix: "TQ3A"},
			"14": {Release: "14", SDK: 34, BuildPrefix: "UQ1A"},
		},
	}
}

// LoadCatalog reads a pattern catalog from a YAML or TOML file and merges
// it over the defaults: manufacturers and versions in the file replace
// same-named defaults, other defaults stay available.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apkerrors.NewNotFoundError("CATALOG_NOT_FOUND",
			"cannot read pattern catalog: "+path)
	}

	var loaded Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, apkerrors.Wrap(err, apkerrors.ErrorTypeParsing, "CATALOG_BAD_TOML",
				"invalid TOML pattern catalog: "+filepath.Base(path))
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, apkerrors.Wrap(err, apkerrors.ErrorTypeParsing, "CATALOG_BAD_YAML",
				"invalid YAML pattern catalog: "+filepath.Base(path))
		}
	default:
		return nil, apkerrors.NewValidationError("CATALOG_BAD_EXT",
			"pattern catalog must be .yaml, .yml, or .toml: "+filepath.Base(path))
	}

	merged := DefaultCatalog()
	for name, m := range loaded.Manufacturers {
		merged.Manufacturers[strings.ToLower(name)] = m
	}
	for ver, v := range loaded.AndroidVersions {
		merged.AndroidVersions[ver] = v
	}
	if loaded.PropsToSpoof != nil {
		merged.PropsToSpoof = loaded.PropsToSpoof
	}

	return merged, nil
}
