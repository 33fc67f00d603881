package svg

import (
	"strings"
	"testing"
)

func TestLineProducesSVG(t *testing.T) {
	out, err := Line(400, 200, []float64{1200, 1800, 950}, []string{"2026-01", "2026-02", "2026-03"}, LineOpts{
		Title:       "Facturación neta",
		Description: "Facturación neta mensual",
		ShowDots:    true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	doc := string(out)
	if !strings.HasPrefix(doc, "<svg") {
		t.Fatalf("expected svg output, got %s", doc)
	}
	if !strings.Contains(doc, "<path") {
		t.Fatalf("expected path element in svg")
	}
	if !strings.Contains(doc, "aria-labelledby") {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestLineRejectsMismatchedLabels(t *testing.T) {
	if _, err := Line(400, 200, []float64{1, 2}, []string{"solo"}, LineOpts{}); err == nil {
		t.Fatalf("expected error for label/series length mismatch")
	}
}

func TestBarsProducesSVG(t *testing.T) {
	out, err := Bars(420, 220, []float64{500, 600}, []float64{300, 320}, []string{"GARRIDO", "MARTÍN"}, BarOpts{
		Title:        "Cartera vencida",
		Description:  "Saldo al día frente a vencido por agente",
		SeriesALabel: "Al día",
		SeriesBLabel: "Vencido",
	})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	doc := string(out)
	if !strings.HasPrefix(doc, "<svg") {
		t.Fatalf("expected svg output, got %s", doc)
	}
	if !strings.Contains(doc, "<rect") {
		t.Fatalf("expected rect bars in svg")
	}
	if !strings.Contains(doc, "Al día") {
		t.Fatalf("expected legend label")
	}
}

func TestBarsHandlesNegativeValues(t *testing.T) {
	out, err := Bars(420, 220, []float64{400, -150}, nil, []string{"A", "B"}, BarOpts{})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	if !strings.Contains(string(out), "<rect") {
		t.Fatalf("expected bars despite negative values")
	}
}

func TestTickFormatting(t *testing.T) {
	cases := map[float64]string{
		2_500_000: "2.5M",
		12_000:    "12.0k",
		47:        "47",
		3.5:       "3.50",
	}
	for value, want := range cases {
		if got := formatTick(value); got != want {
			t.Fatalf("formatTick(%v) = %q, want %q", value, got, want)
		}
	}
}
