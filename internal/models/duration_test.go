package models

import (
	"testing"
	"time"

	"roleflow/internal/errors"
)

func TestParseCadenceDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"1.5h", 90 * time.Minute},
		{" 10M ", 10 * time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseCadenceDuration(tt.raw, "repeat_for")
		if err != nil {
			t.Errorf("ParseCadenceDuration(%q) failed: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCadenceDuration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseCadenceDurationRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "soon", "10", "m10", "10m m", "10x", "10m-5s", "0s"} {
		_, err := ParseCadenceDuration(raw, "repeat_every")
		if !errors.HasCode(err, errors.ErrCodeValidation) {
			t.Errorf("ParseCadenceDuration(%q) should fail with validation error, got %v", raw, err)
		}
	}
}
