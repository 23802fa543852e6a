package util

import (
	"fmt"
	"strconv"
	"strings"
)

func ParseInt(str string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
		return v
	}
	return fallback
}

func ParseBool(str string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(str)); err == nil {
		return v
	}
	return fallback
}

// ParsePositiveInt parses a named integer argument that must be >= 1.
func ParsePositiveInt(name, str string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid int value %q", name, str)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be >= 1, got %d", name, v)
	}
	return v, nil
}
