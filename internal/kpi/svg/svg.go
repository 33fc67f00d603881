// Package svg renders the dashboard charts as standalone SVG documents.
// The output is served directly as image/svg+xml, so every renderer
// returns a complete document rather than an embeddable fragment.
package svg

import (
	"fmt"
	"math"
	"strings"
)

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
}

// BarOpts customises the grouped bar chart renderer.
type BarOpts struct {
	Title        string
	Description  string
	SeriesALabel string
	SeriesBLabel string
	ColorA       string
	ColorB       string
	AxisColor    string
	GridColor    string
	Padding      float64
	TickCount    int
}

// Defaults for the KPI charts.
const (
	DefaultWidth   = 760
	DefaultHeight  = 260
	DefaultPadding = 28.0
	DefaultTicks   = 5
)

// frame holds the resolved plot geometry shared by both renderers.
type frame struct {
	width, height int
	padding       float64
	plotW, plotH  float64
	minVal        float64
	maxVal        float64
	scale         float64
}

func newFrame(width, height int, padding, minVal, maxVal float64) (frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if padding <= 0 {
		padding = DefaultPadding
	}
	f := frame{
		width:   width,
		height:  height,
		padding: padding,
		plotW:   float64(width) - 2*padding,
		plotH:   float64(height) - 2*padding,
	}
	if f.plotW <= 0 || f.plotH <= 0 {
		return frame{}, fmt.Errorf("svg: viewport too small")
	}
	// Always anchor the value axis at zero so amounts read intuitively.
	if minVal > 0 {
		minVal = 0
	}
	if maxVal < 0 {
		maxVal = 0
	}
	if nearly(maxVal, minVal) {
		maxVal = minVal + 1
	}
	f.minVal = minVal
	f.maxVal = maxVal
	f.scale = f.plotH / (maxVal - minVal)
	return f, nil
}

// y maps a data value to a vertical pixel position.
func (f frame) y(value float64) float64 {
	return f.padding + f.plotH - (value-f.minVal)*f.scale
}

func (f frame) bottom() float64 { return f.padding + f.plotH }

// writeGrid emits the horizontal grid lines with their tick labels.
func (f frame) writeGrid(b *strings.Builder, ticks int, gridColor, axisColor string) {
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		value := f.minVal + (f.maxVal-f.minVal)*ratio
		y := f.padding + f.plotH - ratio*f.plotH
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="3,3" aria-hidden="true"/>`,
			f.padding, y, f.padding+f.plotW, y, gridColor)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`,
			f.padding-6, y+4, axisColor, escape(formatTick(value)))
	}
}

// writeAxes draws the value axis and the baseline at the given y.
func (f frame) writeAxes(b *strings.Builder, axisColor string, baselineY float64) {
	fmt.Fprintf(b, `<g stroke="%s" stroke-width="1">`, axisColor)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`,
		f.padding, f.padding, f.padding, f.bottom())
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`,
		f.padding, baselineY, f.padding+f.plotW, baselineY)
	b.WriteString("</g>")
}

func openDocument(b *strings.Builder, f frame, title, desc, titleFallback, descFallback string) {
	id := slug(title)
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s-title %s-desc">`,
		f.width, f.height, id, id)
	fmt.Fprintf(b, `<title id="%s-title">%s</title>`, id, escape(orDefault(title, titleFallback)))
	fmt.Fprintf(b, `<desc id="%s-desc">%s</desc>`, id, escape(orDefault(desc, descFallback)))
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escape(s string) string { return escaper.Replace(s) }

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func slug(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(title))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return "chart"
	}
	return cleaned
}

func seriesBounds(series []float64) (minVal, maxVal float64) {
	minVal, maxVal = series[0], series[0]
	for _, v := range series[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func nearly(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case nearly(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
