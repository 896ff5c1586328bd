package spoof

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
)

// Identity is a generated set of coherent device properties.
type Identity struct {
	ManufacturerKey string `json:"manufacturer_key"`
	Manufacturer    string `json:"manufacturer"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	Device          string `json:"device"`
	Product         string `json:"product"`
	Release         string `json:"release"`
	SDK             int    `json:"sdk"`
	BuildID         string `json:"build_id"`
	Incremental     string `json:"incremental"`
	Fingerprint     string `json:"fingerprint"`
	Description     string `json:"description"`
	BuildHost       string `json:"build_host"`
	BuildDate       string `json:"build_date"`
	BuildDateUTC    string `json:"build_date_utc"`
	Serial          string `json:"serial"`

	// Props maps property names to values in the order given by the
	// catalog's spoof list.
	Props map[string]string `json:"props"`
}

// Groups toggles the property families an identity covers. Disabling a
// group drops its properties from the generated Props map.
type Groups struct {
	Fingerprint    bool // build fingerprints, IDs, and build metadata
	Serial         bool // ro.serialno and ro.boot.serialno
	DeviceIdentity bool // ro.product.* naming
	VersionProps   bool // ro.build.version.release and sdk
}

// AllGroups enables every property family.
func AllGroups() Groups {
	return Groups{Fingerprint: true, Serial: true, DeviceIdentity: true, VersionProps: true}
}

// Generator produces identities from a pattern catalog.
type Generator struct {
	catalog *Catalog
	rng     *rand.Rand

	// Groups selects which property families Generate emits.
	Groups Groups
}

// NewGenerator returns a Generator with every property group enabled.
// A zero seed derives one from the clock.
func NewGenerator(catalog *Catalog, seed int64) *Generator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		catalog: catalog,
		rng:     rand.New(rand.NewSource(seed)),
		Groups:  AllGroups(),
	}
}

// Generate builds an identity for the given manufacturer and Android
// version. Empty arguments pick randomly from the catalog.
func (g *Generator) Generate(manufacturer, androidVersion string) (*Identity, error) {
	return g.GenerateWithModel(manufacturer, androidVersion, "")
}

// GenerateWithModel is Generate with a model hint: a hint matching a
// catalog device (by model name, case-insensitive substring) pins that
// device, otherwise a random catalog device is used.
func (g *Generator) GenerateWithModel(manufacturer, androidVersion, modelHint string) (*Identity, error) {
	mkey, mpat, err := g.pickManufacturer(manufacturer)
	if err != nil {
		return nil, err
	}

	_, vpat, err := g.pickVersion(androidVersion)
	if err != nil {
		return nil, err
	}

	device := g.pickDevice(mpat, modelHint)

	id := &Identity{
		ManufacturerKey: mkey,
		Manufacturer:    mpat.Manufacturer,
		Brand:           mpat.Brand,
		Model:           device.Model,
		Device:          device.Device,
		Product:         device.Product,
		Release:         vpat.Release,
		SDK:             vpat.SDK,
	}

	when := time.Now().AddDate(0, 0, -g.rng.Intn(365))
	id.BuildID = g.buildID(vpat.BuildPrefix, when)
	id.Incremental = g.incremental(mpat.IncrementalStyle, device.Model)
	id.Fingerprint = fmt.Sprintf("%s/%s/%s:%s/%s/%s:user/release-keys",
		id.Brand, id.Product, id.Device, id.Release, id.BuildID, id.Incremental)
	id.Description = fmt.Sprintf("%s-user %s %s %s release-keys",
		id.Product, id.Release, id.BuildID, id.Incremental)
	id.BuildHost = fmt.Sprintf("abfarm-%05d", g.rng.Intn(100000))
	id.BuildDate = when.UTC().Format("Mon Jan 2 15:04:05 MST 2006")
	id.BuildDateUTC = strconv.FormatInt(when.UTC().Unix(), 10)
	id.Serial = g.expandSerialPattern(mpat.SerialPattern)

	id.Props = g.buildProps(id)

	return id, nil
}

// pickManufacturer resolves a manufacturer key, falling back to a random
// catalog entry when the requested one is unknown or has no devices.
func (g *Generator) pickManufacturer(name string) (string, ManufacturerPattern, error) {
	if name != "" {
		key := strings.ToLower(name)
		if pat, ok := g.catalog.Manufacturers[key]; ok && len(pat.Devices) > 0 {
			return key, pat, nil
		}
	}

	keys := make([]string, 0, len(g.catalog.Manufacturers))
	for k, pat := range g.catalog.Manufacturers {
		if len(pat.Devices) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", ManufacturerPattern{}, apkerrors.NewConfigurationError("EMPTY_CATALOG",
			"pattern catalog has no manufacturers with devices")
	}
	sort.Strings(keys)
	key := keys[g.rng.Intn(len(keys))]
	return key, g.catalog.Manufacturers[key], nil
}

// pickDevice resolves the device pattern: a hint matching a known model
// wins, then a random catalog device, then a synthetic generic pattern
// for catalogs without devices.
func (g *Generator) pickDevice(mpat ManufacturerPattern, modelHint string) DevicePattern {
	if modelHint != "" {
		hint := strings.ToLower(modelHint)
		for _, d := range mpat.Devices {
			if strings.Contains(strings.ToLower(d.Model), hint) {
				return d
			}
		}
	}

	if len(mpat.Devices) > 0 {
		return mpat.Devices[g.rng.Intn(len(mpat.Devices))]
	}

	model := fmt.Sprintf("%s-%04d", strings.ToUpper(mpat.Brand), g.rng.Intn(10000))
	code := strings.ToLower(strings.Map(keepAlnumLower, model))
	if code == "" {
		code = "generic"
	}
	return DevicePattern{Model: model, Device: code, Product: code}
}

func (g *Generator) pickVersion(version string) (string, VersionPattern, error) {
	if version != "" {
		pat, ok := g.catalog.AndroidVersions[version]
		if !ok {
			return "", VersionPattern{}, apkerrors.NewValidationError("UNKNOWN_VERSION",
				"Android version not in pattern catalog: "+version)
		}
		return version, pat, nil
	}

	keys := make([]string, 0, len(g.catalog.AndroidVersions))
	for k := range g.catalog.AndroidVersions {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", VersionPattern{}, apkerrors.NewConfigurationError("EMPTY_CATALOG",
			"pattern catalog has no Android versions")
	}
	sort.Strings(keys)
	key := keys[g.rng.Intn(len(keys))]
	return key, g.catalog.AndroidVersions[key], nil
}

// buildID generates PREFIX.YYMMDD.NNN from the build date.
func (g *Generator) buildID(prefix string, when time.Time) string {
	if prefix == "" {
		prefix = "TQ3A"
	}
	return fmt.Sprintf("%s.%s.%03d", prefix, when.Format("060102"), 1+g.rng.Intn(999))
}

// incremental generates a build incremental matching the manufacturer's
// style: Google-like numeric builds or Samsung firmware revisions.
func (g *Generator) incremental(style, model string) string {
	if style == "firmware" {
		// e.g. S908BXXU2AVF1: model core + region + bootloader revision
		core := strings.TrimPrefix(strings.ToUpper(model), "SM-")
		core = strings.Map(keepAlnum, core)
		if core == "" {
			core = "A000F"
		}
		return fmt.Sprintf("%sXXU%d%c%c%c%d",
			core,
			1+g.rng.Intn(9),
			'A'+rune(g.rng.Intn(4)),
			'A'+rune(g.rng.Intn(26)),
			'A'+rune(g.rng.Intn(26)),
			1+g.rng.Intn(9))
	}

	return strconv.Itoa(7000000 + g.rng.Intn(6000000))
}

// AndroidID returns a random settings-style Android ID: 16 lowercase
// hex digits.
func (g *Generator) AndroidID() string {
	const hexDigits = "0123456789abcdef"
	var b strings.Builder
	for i := 0; i < 16; i++ {
		b.WriteByte(hexDigits[g.rng.Intn(len(hexDigits))])
	}
	return b.String()
}

func keepAlnum(r rune) rune {
	if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
		return r
	}
	return -1
}

func keepAlnumLower(r rune) rune {
	if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
		return r
	}
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return -1
}

const serialAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ0123456789"

// expandSerialPattern turns patterns like "R{8}" into a serial: literal
// characters are kept, {N} expands to N random alphanumerics.
func (g *Generator) expandSerialPattern(pattern string) string {
	if pattern == "" {
		pattern = "{10}"
	}

	var sb strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '{' {
			sb.WriteByte(c)
			continue
		}
		end := strings.IndexByte(pattern[i:], '}')
		if end < 0 {
			sb.WriteByte(c)
			continue
		}
		n, err := strconv.Atoi(pattern[i+1 : i+end])
		if err != nil {
			sb.WriteString(pattern[i : i+end+1])
		} else {
			for j := 0; j < n; j++ {
				sb.WriteByte(serialAlphabet[g.rng.Intn(len(serialAlphabet))])
			}
		}
		i += end
	}

	return sb.String()
}

// propGroup maps a property name to the toggle that controls it.
func propGroup(name string) string {
	switch {
	case name == "ro.serialno" || name == "ro.boot.serialno":
		return "serial"
	case name == "ro.build.version.release" || name == "ro.build.version.sdk":
		return "version"
	case strings.HasPrefix(name, "ro.product."):
		return "device"
	default:
		return "fingerprint"
	}
}

func (g *Generator) groupEnabled(name string) bool {
	switch propGroup(name) {
	case "serial":
		return g.Groups.Serial
	case "version":
		return g.Groups.VersionProps
	case "device":
		return g.Groups.DeviceIdentity
	default:
		return g.Groups.Fingerprint
	}
}

// buildProps maps the catalog's spoof list to generated values. Properties
// without a generated value or with their group disabled are omitted.
func (g *Generator) buildProps(id *Identity) map[string]string {
	values := map[string]string{
		"ro.product.brand":             id.Brand,
		"ro.product.manufacturer":      id.Manufacturer,
		"ro.product.model":             id.Model,
		"ro.product.device":            id.Device,
		"ro.product.name":              id.Product,
		"ro.build.fingerprint":         id.Fingerprint,
		"ro.vendor.build.fingerprint":  id.Fingerprint,
		"ro.system.build.fingerprint":  id.Fingerprint,
		"ro.odm.build.fingerprint":     id.Fingerprint,
		"ro.build.id":                  id.BuildID,
		"ro.build.display.id":          id.BuildID,
		"ro.build.version.incremental": id.Incremental,
		"ro.build.version.release":     id.Release,
		"ro.build.version.sdk":         strconv.Itoa(id.SDK),
		"ro.build.description":         id.Description,
		"ro.build.type":                "user",
		"ro.build.tags":                "release-keys",
		"ro.build.host":                id.BuildHost,
		"ro.build.user":                "android-build",
		"ro.build.date":                id.BuildDate,
		"ro.build.date.utc":            id.BuildDateUTC,
		"ro.serialno":                  id.Serial,
		"ro.boot.serialno":             id.Serial,
	}

	if id.ManufacturerKey == "xiaomi" {
		values["ro.miui.ui.version.name"] = "V14"
		values["ro.miui.ui.version.code"] = "14"
	}

	props := make(map[string]string)
	for _, name := range g.catalog.SpoofProps() {
		val, ok := values[name]
		if !ok || !g.groupEnabled(name) {
			continue
		}
		props[name] = val
	}
	// MIUI props ride along even when not in the default list.
	if id.ManufacturerKey == "xiaomi" && g.catalog.PropsToSpoof == nil && g.Groups.DeviceIdentity {
		props["ro.miui.ui.version.name"] = values["ro.miui.ui.version.name"]
		props["ro.miui.ui.version.code"] = values["ro.miui.ui.version.code"]
	}

	return props
}
