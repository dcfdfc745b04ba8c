package version

import "testing"

func TestVersionStrings(t *testing.T) {
	tests := []struct {
		name              string
		tag, commit, date string
		wantShort         string
		wantFull          string
	}{
		{"dev build", "", "", "", "dev", "dev"},
		{"commit only", "", "abc1234", "2026-10-01", "abc1234", "abc1234 (built 2026-10-01)"},
		{"tagged", "v0.3.0", "abc1234", "2026-10-01", "v0.3.0", "v0.3.0 (commit abc1234, built 2026-10-01)"},
		{"tag without details", "v0.3.0", "", "", "v0.3.0", "v0.3.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Tag, Commit, Date = tt.tag, tt.commit, tt.date
			t.Cleanup(func() { Tag, Commit, Date = "", "", "" })

			if got := String(); got != tt.wantShort {
				t.Errorf("String() = %q, want %q", got, tt.wantShort)
			}
			if got := Full(); got != tt.wantFull {
				t.Errorf("Full() = %q, want %q", got, tt.wantFull)
			}
		})
	}
}
