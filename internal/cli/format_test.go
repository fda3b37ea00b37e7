package cli

import (
	"math"
	"strings"
	"testing"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0p"},
		{250, "250p"},
		{120.5, "120.5p"},
		{1234.5, "1,234.5p"},
		{math.Inf(1), "-"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatWeight(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{300, "300 g"},
		{999.5, "999.5 g"},
		{1250, "1.25 kg"},
		{2000, "2 kg"},
	}
	for _, tt := range tests {
		if got := FormatWeight(tt.in); got != tt.want {
			t.Errorf("FormatWeight(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCalories(t *testing.T) {
	if got := FormatCalories(1820.6); got != "1,821 kcal" {
		t.Errorf("FormatCalories = %q, want 1,821 kcal", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Borscht", 10, "Borscht"},
		{"Борщ со сметаной", 5, "Борщ…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatDay(t *testing.T) {
	if got := FormatDay(0); got != "Day 1" {
		t.Errorf("FormatDay(0) = %q", got)
	}
}

func TestRenderTableAlignsLabels(t *testing.T) {
	out := RenderTable(Table{
		Headers:   []string{"ID", "Name", "Price"},
		Rows:      [][]string{{"1", "Борщ", "250p"}, {"---"}, {"22", "Tea", "5p"}},
		LabelCols: 2,
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[3], "Борщ") || !strings.Contains(lines[3], "250p") {
		t.Errorf("row = %q", lines[3])
	}
	if !strings.Contains(lines[5], "   5p") {
		t.Errorf("price not right-aligned: %q", lines[5])
	}
}

func TestRenderBudgetBar(t *testing.T) {
	if got := RenderBudgetBar(10, 0, 10); got != "" {
		t.Errorf("zero limit = %q, want empty", got)
	}
	out := RenderBudgetBar(185, 370, 10)
	if strings.Count(out, "█") != 5 || strings.Count(out, "░") != 5 {
		t.Errorf("half bar = %q", out)
	}
	if !strings.Contains(out, "185p / 370p") {
		t.Errorf("label missing: %q", out)
	}
	if over := RenderBudgetBar(500, 370, 10); strings.Count(over, "█") != 10 {
		t.Errorf("over bar = %q", over)
	}
}
