package render

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colors the TUI draws with
type Palette struct {
	Name string

	Border    lipgloss.Color
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

var (
	// TokyoNightPalette is the default
	TokyoNightPalette = Palette{
		Name:      "tokyonight",
		Border:    lipgloss.Color("#414868"),
		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),
		Text:      lipgloss.Color("#c0caf5"),
		TextDim:   lipgloss.Color("#565f89"),
	}

	CatppuccinPalette = Palette{
		Name:      "catppuccin",
		Border:    lipgloss.Color("#45475a"),
		Primary:   lipgloss.Color("#89b4fa"),
		Secondary: lipgloss.Color("#a6e3a1"),
		Accent:    lipgloss.Color("#cba6f7"),
		Warning:   lipgloss.Color("#f9e2af"),
		Error:     lipgloss.Color("#f38ba8"),
		Text:      lipgloss.Color("#cdd6f4"),
		TextDim:   lipgloss.Color("#6c7086"),
	}

	NordPalette = Palette{
		Name:      "nord",
		Border:    lipgloss.Color("#4c566a"),
		Primary:   lipgloss.Color("#88c0d0"),
		Secondary: lipgloss.Color("#a3be8c"),
		Accent:    lipgloss.Color("#b48ead"),
		Warning:   lipgloss.Color("#ebcb8b"),
		Error:     lipgloss.Color("#bf616a"),
		Text:      lipgloss.Color("#eceff4"),
		TextDim:   lipgloss.Color("#7b88a1"),
	}
)

// Palettes returns the available TUI palettes
func Palettes() []Palette {
	return []Palette{TokyoNightPalette, CatppuccinPalette, NordPalette}
}

// PaletteByName returns the named palette, or the default when unknown
func PaletteByName(name string) (Palette, bool) {
	for _, p := range Palettes() {
		if p.Name == name {
			return p, true
		}
	}
	return TokyoNightPalette, false
}
