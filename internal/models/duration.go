package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roleflow/internal/errors"
)

// Cadence durations accept concatenated chunks like "30s", "10m", "1h30m",
// "1d" with fractional values ("1.5h"). time.ParseDuration is not used
// because it rejects the day unit.
var cadenceChunkPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)([smhd])`)

var cadenceUnitSeconds = map[string]float64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// ParseCadenceDuration parses a cadence duration string. fieldName is used
// in error messages only.
func ParseCadenceDuration(raw, fieldName string) (time.Duration, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return 0, errors.ValidationError(fmt.Sprintf("template field `%s` cannot be empty", fieldName))
	}

	matches := cadenceChunkPattern.FindAllStringSubmatch(value, -1)
	joined := ""
	for _, match := range matches {
		joined += match[0]
	}
	if len(matches) == 0 || joined != value {
		return 0, errors.ValidationError(fmt.Sprintf(
			"invalid duration `%s` for `%s`. Use values like 30s, 10m, 2h, 1h30m", raw, fieldName))
	}

	var seconds float64
	for _, match := range matches {
		n, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, errors.ValidationError(fmt.Sprintf(
				"invalid duration `%s` for `%s`", raw, fieldName))
		}
		seconds += n * cadenceUnitSeconds[match[2]]
	}
	if seconds <= 0 {
		return 0, errors.ValidationError(fmt.Sprintf(
			"duration for `%s` must be greater than zero", fieldName))
	}

	return time.Duration(seconds * float64(time.Second)), nil
}
