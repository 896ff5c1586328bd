package bundle

import (
	"encoding/json"
	"testing"
)

func jsonUnmarshal(payload string, v interface{}) error {
	return json.Unmarshal([]byte(payload), v)
}

func TestClassifySplit(t *testing.T) {
	tests := []struct {
		name     string
		wantKind SplitKind
		wantQual string
	}{
		{"base.apk", KindBase, ""},
		{"config.arm64_v8a.apk", KindABI, "arm64-v8a"},
		{"split_config.armeabi_v7a.apk", KindABI, "armeabi-v7a"},
		{"config.x86.apk", KindABI, "x86"},
		{"config.x86_64.apk", KindABI, "x86_64"},
		{"config.xxhdpi.apk", KindDensity, "xxhdpi"},
		{"config.nodpi.apk", KindDensity, "nodpi"},
		{"config.en.apk", KindLanguage, "en"},
		{"config.zh_cn.apk", KindLanguage, "zh_cn"},
		{"com.example.app.config.xhdpi.apk", KindDensity, "xhdpi"},
		{"feature_assets.apk", KindUnknown, ""},
		{"com.example.app.apk", KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, qual := classifySplit(tt.name)
			if kind != tt.wantKind || qual != tt.wantQual {
				t.Errorf("classifySplit(%q) = %v/%q, want %v/%q",
					tt.name, kind, qual, tt.wantKind, tt.wantQual)
			}
		})
	}
}

func TestEnsureBaseFromManifest(t *testing.T) {
	b := &Bundle{
		Splits: []SplitFile{
			{Name: "main.apk", Kind: KindUnknown, Size: 100},
			{Name: "config.arm64_v8a.apk", Kind: KindABI, Qualifier: "arm64-v8a", Size: 50},
		},
	}
	m := &Manifest{}
	m.SplitAPKs = []struct {
		File string `json:"file"`
		ID   string `json:"id"`
	}{
		{File: "main.apk", ID: "base"},
	}

	ensureBase(b, m)

	base, ok := b.Base()
	if !ok || base.Name != "main.apk" {
		t.Fatalf("base = %v (found %v), want main.apk", base.Name, ok)
	}
}

func TestEnsureBaseLargestFallback(t *testing.T) {
	b := &Bundle{
		Splits: []SplitFile{
			{Name: "first.apk", Kind: KindUnknown, Size: 10},
			{Name: "second.apk", Kind: KindUnknown, Size: 500},
			{Name: "config.arm64_v8a.apk", Kind: KindABI, Qualifier: "arm64-v8a", Size: 900},
		},
	}

	ensureBase(b, nil)

	base, ok := b.Base()
	if !ok || base.Name != "second.apk" {
		t.Fatalf("base = %q, want largest unknown split second.apk", base.Name)
	}
}

func TestFlexIntDecoding(t *testing.T) {
	var m Manifest
	for _, payload := range []string{
		`{"package_name":"com.example","version_code":"42"}`,
		`{"package_name":"com.example","version_code":42}`,
	} {
		m = Manifest{}
		if err := jsonUnmarshal(payload, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", payload, err)
		}
		if m.VersionCode != 42 {
			t.Errorf("VersionCode = %d for %s, want 42", m.VersionCode, payload)
		}
	}
}
