package formatting_test

import (
	"testing"

	"github.com/JaimeStill/glimpse/pkg/formatting"
)

const (
	kb = int64(1024)
	mb = 1024 * kb
	gb = 1024 * mb
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"bare bytes", "1024", 1024, false},
		{"bytes unit", "512B", 512, false},
		{"kilobytes", "1KB", kb, false},
		{"upload default", "32MB", 32 * mb, false},
		{"gigabytes", "2GB", 2 * gb, false},
		{"lowercase unit", "10mb", 10 * mb, false},
		{"iec unit", "4MiB", 4 * mb, false},
		{"iec lowercase", "1gib", gb, false},
		{"fractional", "1.5GB", gb + gb/2, false},
		{"with space", "100 MB", 100 * mb, false},
		{"surrounding whitespace", "  50MB  ", 50 * mb, false},
		{"zero", "0", 0, false},
		{"empty string", "", 0, true},
		{"unknown unit", "50XX", 0, true},
		{"no number", "MB", 0, true},
		{"negative", "-5MB", 0, true},
		{"double dot", "1.2.3MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name      string
		n         int64
		precision int
		want      string
	}{
		{"zero", 0, 2, "0 B"},
		{"bytes", 500, 0, "500 B"},
		{"one KB", kb, 0, "1 KB"},
		{"upload default", 32 * mb, 0, "32 MB"},
		{"one GB", gb, 0, "1 GB"},
		{"fractional MB", 1536 * kb, 1, "1.5 MB"},
		{"negative precision clamped", kb, -1, "1 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}

func TestFormatThenParse(t *testing.T) {
	for _, n := range []int64{kb, 50 * mb, gb, 1024 * gb} {
		formatted := formatting.FormatBytes(n, 0)
		parsed, err := formatting.ParseBytes(formatted)
		if err != nil {
			t.Fatalf("ParseBytes(%q) error: %v", formatted, err)
		}
		if parsed != n {
			t.Errorf("%d formatted as %q parsed back as %d", n, formatted, parsed)
		}
	}
}
