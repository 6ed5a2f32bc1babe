package render

import (
	"os"
	"path/filepath"
	"strings"
)

// Glamour standard style names
const (
	StyleAuto       = "auto"
	StyleDark       = "dark"
	StyleLight      = "light"
	StyleDracula    = "dracula"
	StyleTokyoNight = "tokyo-night"
	StylePink       = "pink"
	StyleNoTTY      = "notty"
	StyleASCII      = "ascii"
)

// StandardStyles lists the style names glamour ships with
func StandardStyles() []string {
	return []string{
		StyleDark,
		StyleLight,
		StyleDracula,
		StyleTokyoNight,
		StylePink,
		StyleNoTTY,
		StyleASCII,
		StyleAuto,
	}
}

// IsStandardStyle reports whether style names a built-in glamour style
func IsStandardStyle(style string) bool {
	for _, s := range StandardStyles() {
		if s == style {
			return true
		}
	}
	return false
}

// ValidateStyle accepts a standard style name or an existing JSON file
func ValidateStyle(style string) bool {
	if IsStandardStyle(style) {
		return true
	}
	if !strings.EqualFold(filepath.Ext(style), ".json") {
		return false
	}
	info, err := os.Stat(style)
	return err == nil && !info.IsDir()
}
