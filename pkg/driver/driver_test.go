package driver_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/driver"
)

func TestSettingsAttributes(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "rect", []string{"rect"}},
		{"spaced", " name , rect ,", []string{"name", "rect"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := driver.Settings{ElementResponseAttributes: tt.value}
			if got := s.Attributes(); !slices.Equal(got, tt.want) {
				t.Errorf("Attributes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettingsWithAttribute(t *testing.T) {
	t.Run("appends", func(t *testing.T) {
		s := driver.Settings{ElementResponseAttributes: "name"}.WithAttribute(driver.RectAttribute)
		if s.ElementResponseAttributes != "name,rect" {
			t.Errorf("got %q, want name,rect", s.ElementResponseAttributes)
		}
	})

	t.Run("from empty", func(t *testing.T) {
		s := driver.Settings{}.WithAttribute(driver.RectAttribute)
		if s.ElementResponseAttributes != "rect" {
			t.Errorf("got %q, want rect", s.ElementResponseAttributes)
		}
	})

	t.Run("already present", func(t *testing.T) {
		orig := driver.Settings{ElementResponseAttributes: "rect, name"}
		if s := orig.WithAttribute(driver.RectAttribute); s != orig {
			t.Errorf("got %q, want unchanged", s.ElementResponseAttributes)
		}
	})
}
