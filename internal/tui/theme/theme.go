// Package theme defines the color palettes of the mealplan TUI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps the TUI's color roles to concrete colors.
type Theme struct {
	Name  string
	Label string // shown in the setup form

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and panels
	SurfaceHover  lipgloss.Color // active tab, cursor row
	SurfaceBright lipgloss.Color
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused day card

	TextDim     lipgloss.Color // hints
	TextMuted   lipgloss.Color // labels, notes
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	Cyan         lipgloss.Color // key hints

	// Budget levels, from plenty left to over the limit.
	Green       lipgloss.Color
	GreenBright lipgloss.Color
	Yellow      lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
}

// Budget returns the color for a day that has spent pct of its limit.
func (t Theme) Budget(pct float64) lipgloss.Color {
	switch {
	case pct > 1:
		return t.Red
	case pct >= 0.9:
		return t.Orange
	case pct >= 0.7:
		return t.Yellow
	default:
		return t.Green
	}
}

// Pantry is the default: dark wood with tomato and saffron accents.
var Pantry = Theme{
	Name:          "pantry",
	Label:         "Pantry (warm dark)",
	Background:    lipgloss.Color("#14110F"),
	Surface:       lipgloss.Color("#201B17"),
	SurfaceHover:  lipgloss.Color("#2E2620"),
	SurfaceBright: lipgloss.Color("#3B3129"),
	Border:        lipgloss.Color("#4A3F35"),
	BorderAccent:  lipgloss.Color("#E07A3F"),
	TextDim:       lipgloss.Color("#6B5E52"),
	TextMuted:     lipgloss.Color("#A89884"),
	TextPrimary:   lipgloss.Color("#F6EEDF"),
	Accent:        lipgloss.Color("#E07A3F"),
	AccentBright:  lipgloss.Color("#F29B63"),
	Cyan:          lipgloss.Color("#7FB7A4"),
	Green:         lipgloss.Color("#8FA446"),
	GreenBright:   lipgloss.Color("#AFC45E"),
	Yellow:        lipgloss.Color("#E3B23C"),
	Orange:        lipgloss.Color("#E07A3F"),
	Red:           lipgloss.Color("#C8473B"),
}

// HerbGarden is a green dark palette.
var HerbGarden = Theme{
	Name:          "herb-garden",
	Label:         "Herb garden (green dark)",
	Background:    lipgloss.Color("#0F1511"),
	Surface:       lipgloss.Color("#18211A"),
	SurfaceHover:  lipgloss.Color("#233026"),
	SurfaceBright: lipgloss.Color("#2F3F32"),
	Border:        lipgloss.Color("#3D5040"),
	BorderAccent:  lipgloss.Color("#7CC47F"),
	TextDim:       lipgloss.Color("#556B58"),
	TextMuted:     lipgloss.Color("#98AE99"),
	TextPrimary:   lipgloss.Color("#E8F3E6"),
	Accent:        lipgloss.Color("#7CC47F"),
	AccentBright:  lipgloss.Color("#A2DCA3"),
	Cyan:          lipgloss.Color("#6CC3C0"),
	Green:         lipgloss.Color("#7CC47F"),
	GreenBright:   lipgloss.Color("#A2DCA3"),
	Yellow:        lipgloss.Color("#D9C35C"),
	Orange:        lipgloss.Color("#E0914A"),
	Red:           lipgloss.Color("#E0605A"),
}

// Blueberry is a cool blue palette.
var Blueberry = Theme{
	Name:          "blueberry",
	Label:         "Blueberry (cool dark)",
	Background:    lipgloss.Color("#11131C"),
	Surface:       lipgloss.Color("#1A1E2B"),
	SurfaceHover:  lipgloss.Color("#262B3D"),
	SurfaceBright: lipgloss.Color("#33394F"),
	Border:        lipgloss.Color("#454C66"),
	BorderAccent:  lipgloss.Color("#7E8CE0"),
	TextDim:       lipgloss.Color("#5A6180"),
	TextMuted:     lipgloss.Color("#A0A7C4"),
	TextPrimary:   lipgloss.Color("#E4E7F5"),
	Accent:        lipgloss.Color("#7E8CE0"),
	AccentBright:  lipgloss.Color("#A5B0F0"),
	Cyan:          lipgloss.Color("#72C7E8"),
	Green:         lipgloss.Color("#8CCB8A"),
	GreenBright:   lipgloss.Color("#ABE2A8"),
	Yellow:        lipgloss.Color("#E6C670"),
	Orange:        lipgloss.Color("#EE9A6A"),
	Red:           lipgloss.Color("#E8708A"),
}

// Terminal uses the 16 ANSI colors only.
var Terminal = Theme{
	Name:          "terminal",
	Label:         "Terminal (ANSI 16)",
	Background:    lipgloss.Color("0"),
	Surface:       lipgloss.Color("0"),
	SurfaceHover:  lipgloss.Color("8"),
	SurfaceBright: lipgloss.Color("8"),
	Border:        lipgloss.Color("8"),
	BorderAccent:  lipgloss.Color("3"),
	TextDim:       lipgloss.Color("8"),
	TextMuted:     lipgloss.Color("7"),
	TextPrimary:   lipgloss.Color("15"),
	Accent:        lipgloss.Color("3"),
	AccentBright:  lipgloss.Color("11"),
	Cyan:          lipgloss.Color("6"),
	Green:         lipgloss.Color("2"),
	GreenBright:   lipgloss.Color("10"),
	Yellow:        lipgloss.Color("11"),
	Orange:        lipgloss.Color("3"),
	Red:           lipgloss.Color("1"),
}

// All lists the themes in display order.
var All = []Theme{Pantry, HerbGarden, Blueberry, Terminal}

// Active is the theme every view renders with.
var Active = Pantry

// ByName returns the named theme, or Pantry when the name is unknown.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return Pantry
}

// Names lists the theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// SetActive switches the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
