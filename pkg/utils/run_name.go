package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateRunName creates a standardized, human-readable run name.
// Format: {prefix}-{8charHexUUID}
//
// Example:
//   - Input: prefix="simulation"
//   - Output: "simulation-a3f8e2b1"
//
// The UUID suffix keeps names globally unique while staying compact
// enough for log lines and CLI tables.
func GenerateRunName(prefix string) string {
	if prefix == "" {
		prefix = "run"
	}
	return prefix + "-" + generateShortUUID()
}

// generateShortUUID creates an 8-character hex string from a UUID.
func generateShortUUID() string {
	id := uuid.New()
	// Remove hyphens and take first 8 characters
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
