package bundle

import (
	"sort"
	"strings"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

// Selection is the outcome of matching a bundle against a device.
type Selection struct {
	Files    []SplitFile `json:"files"`
	Skipped  []SplitFile `json:"skipped"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Paths returns the file paths of the selected splits, base first.
func (s Selection) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}
	return paths
}

// Select chooses which splits of a bundle to install on the device:
//
//   - the base APK, always
//   - ABI splits matching one of the device ABIs
//   - the density split matching the device bucket, or nodpi
//   - all language splits (locale changes must not break the app)
//   - unknown splits, since dropping them risks missing features
//
// Splits that match nothing are reported in Skipped.
func Select(b *Bundle, profile *adb.DeviceProfile) (Selection, error) {
	var sel Selection

	base, ok := b.Base()
	if !ok {
		return sel, apkerrors.NewValidationError("BUNDLE_NO_BASE",
			"bundle has no base APK")
	}
	sel.Files = append(sel.Files, base)

	deviceABIs := make(map[string]bool, len(profile.ABIs))
	for _, abi := range profile.ABIs {
		deviceABIs[normalizeABI(abi)] = true
	}

	bucket := profile.DPIBucket()
	densityMatched := false
	var nodpiSplit *SplitFile
	abiSplitSeen := false
	abiMatched := false

	for i := range b.Splits {
		s := b.Splits[i]
		switch s.Kind {
		case KindBase:
			continue
		case KindABI:
			abiSplitSeen = true
			if deviceABIs[normalizeABI(s.Qualifier)] {
				sel.Files = append(sel.Files, s)
				abiMatched = true
			} else {
				sel.Skipped = append(sel.Skipped, s)
			}
		case KindDensity:
			if s.Qualifier == bucket {
				sel.Files = append(sel.Files, s)
				densityMatched = true
			} else if s.Qualifier == "nodpi" {
				nodpiSplit = &b.Splits[i]
			} else {
				sel.Skipped = append(sel.Skipped, s)
			}
		case KindLanguage:
			sel.Files = append(sel.Files, s)
		default:
			sel.Files = append(sel.Files, s)
		}
	}

	if !densityMatched && nodpiSplit != nil {
		sel.Files = append(sel.Files, *nodpiSplit)
	} else if nodpiSplit != nil {
		sel.Skipped = append(sel.Skipped, *nodpiSplit)
	}

	if abiSplitSeen && !abiMatched {
		sel.Warnings = append(sel.Warnings,
			"no ABI split matches device architectures "+strings.Join(profile.ABIs, ","))
	}

	// Deterministic install order: base first, then splits by name.
	rest := sel.Files[1:]
	sort.Slice(rest, func(i, j int) bool { return rest[i].Name < rest[j].Name })

	return sel, nil
}

func normalizeABI(abi string) string {
	return strings.ToLower(strings.ReplaceAll(abi, "_", "-"))
}
