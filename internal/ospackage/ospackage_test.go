package ospackage

import "testing"

func TestPackageInfoNEVRA(t *testing.T) {
	tests := []struct {
		name     string
		pkg      PackageInfo
		wantEVR  string
		expected string
	}{
		{
			name:     "full",
			pkg:      PackageInfo{Name: "bash", Epoch: "1", Version: "5.1.8", Release: "9.el9", Arch: "x86_64"},
			wantEVR:  "1:5.1.8-9.el9",
			expected: "bash-1:5.1.8-9.el9.x86_64",
		},
		{
			name:     "no epoch",
			pkg:      PackageInfo{Name: "zlib", Version: "1.2.13", Release: "5", Arch: "aarch64"},
			wantEVR:  "1.2.13-5",
			expected: "zlib-1.2.13-5.aarch64",
		},
		{
			name:     "name only",
			pkg:      PackageInfo{Name: "virtual"},
			wantEVR:  "",
			expected: "virtual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pkg.EVR(); got != tt.wantEVR {
				t.Errorf("EVR() = %q, want %q", got, tt.wantEVR)
			}
			if got := tt.pkg.NEVRA(); got != tt.expected {
				t.Errorf("NEVRA() = %q, want %q", got, tt.expected)
			}
		})
	}
}
