package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/mealplan/internal/model"
	"github.com/theirongolddev/mealplan/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToWidth(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		widths := LayoutRow(100, n)
		sum := 0
		for _, w := range widths {
			sum += w
		}
		if sum != 100 {
			t.Errorf("LayoutRow(100, %d) sums to %d, want 100", n, sum)
		}
	}
	if got := LayoutRow(10, 0); got != nil {
		t.Errorf("LayoutRow(10, 0) = %v, want nil", got)
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("pantry")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("joined height = %d, want %d", len(lines), tallLines)
	}

	// Lines below the short card are padding and must still carry styling.
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes: %q", i, lines[i])
		}
	}

	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Errorf("line %d width = %d, want %d", i, w, want)
		}
	}
}

func TestDayCardShowsProductsAndTotals(t *testing.T) {
	theme.SetActive("terminal")

	day := model.DayView{
		Index: 1,
		Products: []*model.Product{
			{ID: "1", Name: "Borscht", Price: 250},
			{ID: "2", Name: "Tea", Price: 20},
		},
		Totals: model.Totals{Count: 2, Price: 270},
	}
	out := DayCard(day, 370, 0, true, 40)

	for _, want := range []string{"Day 2", "Borscht", "Tea", "250p", "370p", "73%"} {
		if !strings.Contains(out, want) {
			t.Errorf("DayCard output missing %q:\n%s", want, out)
		}
	}
	for i, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w != 40 {
			t.Errorf("line %d width = %d, want 40", i, w)
		}
	}
}

func TestDayCardEmpty(t *testing.T) {
	out := DayCard(model.DayView{}, 370, -1, false, 30)
	if !strings.Contains(out, "empty") {
		t.Errorf("empty day should say so:\n%s", out)
	}
}

func TestBudgetBarWidth(t *testing.T) {
	for _, spent := range []float64{0, 185, 370, 500} {
		out := BudgetBar(spent, 370, 30)
		if w := lipgloss.Width(out); w != 30 {
			t.Errorf("BudgetBar(%v) width = %d, want 30", spent, w)
		}
	}
	if out := BudgetBar(500, 370, 30); !strings.Contains(out, "135%") {
		t.Errorf("overspent bar should report 135%%: %q", out)
	}
}

func TestColorForPct(t *testing.T) {
	theme.SetActive("pantry")
	tests := []struct {
		pct  float64
		want lipgloss.Color
	}{
		{0.1, theme.Active.Green},
		{0.75, theme.Active.Yellow},
		{0.95, theme.Active.Orange},
		{1.2, theme.Active.Red},
	}
	for _, tt := range tests {
		if got := ColorForPct(tt.pct); got != string(tt.want) {
			t.Errorf("ColorForPct(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('a'); got != 1 {
		t.Errorf("TabIdxByKey('a') = %d, want 1", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}
