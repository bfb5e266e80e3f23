// Package color provides validation and parsing for sample swatch hex
// codes. Swatch colors come from the catalog and are forwarded to the
// geometry service and to clients, so they are validated and sanitized
// at the boundary.
package color

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// hexColorPattern matches valid hex color codes in format #RRGGBB (case insensitive).
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidHexFormat is returned for color strings not in #RRGGBB format.
var ErrInvalidHexFormat = errors.New("invalid hex color format, expected #RRGGBB")

// IsValidHexColor validates that a color string is in valid #RRGGBB format.
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// SanitizeColor sanitizes a color string to prevent script injection.
// Returns the original color if valid, or empty string if invalid.
func SanitizeColor(color string) string {
	// HTML escape to prevent any script injection
	sanitized := html.EscapeString(strings.TrimSpace(color))

	// Verify it's still a valid hex color after sanitization
	if !IsValidHexColor(sanitized) {
		return ""
	}

	return sanitized
}

// ValidateHexColor validates a hex color and returns an error if invalid.
func ValidateHexColor(color string) error {
	if !IsValidHexColor(color) {
		return fmt.Errorf("%w: got %q", ErrInvalidHexFormat, color)
	}
	return nil
}

// RGB represents a color in RGB color space with values 0-255.
type RGB struct {
	R, G, B uint8
}

// ParseHexColor parses a hex color string (#RRGGBB) into RGB components.
// Returns an error if the color is not in valid hex format.
func ParseHexColor(hexColor string) (RGB, error) {
	if !IsValidHexColor(hexColor) {
		return RGB{}, ErrInvalidHexFormat
	}

	// Remove the # prefix
	hexColor = strings.TrimPrefix(hexColor, "#")

	// Parse each component
	r, err := strconv.ParseUint(hexColor[0:2], 16, 8)
	if err != nil {
		return RGB{}, fmt.Errorf("failed to parse red component: %w", err)
	}

	g, err := strconv.ParseUint(hexColor[2:4], 16, 8)
	if err != nil {
		return RGB{}, fmt.Errorf("failed to parse green component: %w", err)
	}

	b, err := strconv.ParseUint(hexColor[4:6], 16, 8)
	if err != nil {
		return RGB{}, fmt.Errorf("failed to parse blue component: %w", err)
	}

	return RGB{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}
