package render

import "strings"

type Theme string

const (
	ThemeLight     Theme = "Light"
	ThemeDark      Theme = "Dark"
	ThemeBlueprint Theme = "Blueprint"
)

// Colors is the themed part of the palette.
type Colors struct {
	Background string `json:"background"`
	Grid       string `json:"grid"`
	Text       string `json:"text"`
	Line       string `json:"line"`
}

var themes = map[Theme]Colors{
	ThemeLight:     {Background: "#ffffff", Grid: "#aaaaaa", Text: "black", Line: "black"},
	ThemeDark:      {Background: "#121212", Grid: "#555555", Text: "white", Line: "cyan"},
	ThemeBlueprint: {Background: "#003366", Grid: "#004080", Text: "white", Line: "yellow"},
}

// Fixed colours shared by every theme.
const (
	FillColor         = "green"
	FillOpacity       = 0.1
	AreaTextColor     = "darkgreen"
	AreaBoxStroke     = "green"
	EdgeTextColor     = "brown"
	StationTextColor  = "blue"
	MarkerColor       = "red"
	MarkerStrokeColor = "black"
)

// Themes lists the supported themes in display order.
func Themes() []Theme { return []Theme{ThemeLight, ThemeDark, ThemeBlueprint} }

// ParseTheme accepts "Dark", "dark mode", "BLUEPRINT" and similar. Unknown
// names resolve to Light with ok=false.
func ParseTheme(name string) (t Theme, ok bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, " mode")
	for _, th := range Themes() {
		if strings.ToLower(string(th)) == n {
			return th, true
		}
	}
	return ThemeLight, false
}

// Colors returns the palette for t, falling back to Light.
func (t Theme) Colors() Colors {
	if c, ok := themes[t]; ok {
		return c
	}
	return themes[ThemeLight]
}
