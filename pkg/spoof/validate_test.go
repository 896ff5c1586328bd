package spoof

import "testing"

func TestValidateProp(t *testing.T) {
	tests := []struct {
		name  string
		prop  string
		value string
		ok    bool
	}{
		{"good fingerprint", "ro.build.fingerprint", "google/husky/husky:14/UQ1A.240105.002/11201234:user/release-keys", true},
		{"fingerprint missing section", "ro.build.fingerprint", "google/husky:14/UQ1A.240105.002", false},
		{"fingerprint with spaces", "ro.build.fingerprint", "google/hus ky/husky:14/UQ1A.240105.002/11201234:user/release-keys", false},
		{"good build id", "ro.build.id", "TQ3A.230901.001", true},
		{"bad build id date", "ro.build.id", "TQ3A.2309.001", false},
		{"lowercase build id", "ro.build.id", "tq3a.230901.001", false},
		{"good serial", "ro.serialno", "R58M12ABCDE", true},
		{"short serial", "ro.serialno", "AB1", false},
		{"serial with dash", "ro.serialno", "R58M12-ABCD", false},
		{"numeric incremental", "ro.build.version.incremental", "11201234", true},
		{"firmware incremental", "ro.build.version.incremental", "S908BXXU2AVF1", true},
		{"empty incremental", "ro.build.version.incremental", "", false},
		{"good model", "ro.product.model", "Pixel 8 Pro", true},
		{"empty model", "ro.product.model", "", false},
		{"sdk digits", "ro.build.version.sdk", "34", true},
		{"sdk not digits", "ro.build.version.sdk", "thirty", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProp(tt.prop, tt.value)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateProp(%q, %q) error = %v, want ok=%v", tt.prop, tt.value, err, tt.ok)
			}
		})
	}
}
