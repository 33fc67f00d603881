package svg

import (
	"fmt"
	"math"
	"strings"
)

// Bars renders a grouped bar chart comparing two series per label.
// Either series may be empty, in which case only the other is drawn.
func Bars(width, height int, seriesA, seriesB []float64, labels []string, opts BarOpts) ([]byte, error) {
	if len(seriesA) == 0 && len(seriesB) == 0 {
		return nil, fmt.Errorf("svg: at least one series required")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("svg: labels required")
	}
	if len(seriesA) > 0 && len(seriesA) != len(labels) {
		return nil, fmt.Errorf("svg: seriesA length must match labels")
	}
	if len(seriesB) > 0 && len(seriesB) != len(labels) {
		return nil, fmt.Errorf("svg: seriesB length must match labels")
	}

	minVal, maxVal := 0.0, 0.0
	for _, s := range [][]float64{seriesA, seriesB} {
		if len(s) == 0 {
			continue
		}
		lo, hi := seriesBounds(s)
		minVal = math.Min(minVal, lo)
		maxVal = math.Max(maxVal, hi)
	}
	f, err := newFrame(width, height, opts.Padding, minVal, maxVal)
	if err != nil {
		return nil, err
	}

	axisColor := orDefault(opts.AxisColor, "#475569")
	gridColor := orDefault(opts.GridColor, "#cbd5f5")
	colorA := orDefault(opts.ColorA, "#0ea5e9")
	colorB := orDefault(opts.ColorB, "#f97316")
	labelA := orDefault(opts.SeriesALabel, "Serie A")
	labelB := orDefault(opts.SeriesBLabel, "Serie B")

	zeroY := f.y(0)
	groupWidth := f.plotW / float64(len(labels))
	barWidth := groupWidth / 3

	var b strings.Builder
	openDocument(&b, f, opts.Title, opts.Description, "Bar chart", "Grouped bar comparison")
	f.writeGrid(&b, opts.TickCount, gridColor, axisColor)
	f.writeAxes(&b, axisColor, zeroY)

	drawBar := func(x, value float64, color, series, label string) {
		top, h := f.barRect(value, zeroY)
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s %s"/>`,
			x, top, barWidth, h, color, escape(series), escape(label))
	}

	for i, label := range labels {
		baseX := f.padding + float64(i)*groupWidth
		if len(seriesA) > 0 {
			drawBar(baseX+barWidth*0.3, seriesA[i], colorA, labelA, label)
		}
		if len(seriesB) > 0 {
			drawBar(baseX+barWidth*1.4, seriesB[i], colorB, labelB, label)
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			baseX+groupWidth/2, f.bottom()+14, axisColor, escape(label))
	}

	legendY := math.Max(f.padding-12, 12)
	legendX := f.padding
	writeLegend := func(color, label string) {
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"/>`, legendX, legendY-8, color)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="start">%s</text>`,
			legendX+14, legendY, axisColor, escape(label))
		legendX += 110
	}
	if len(seriesA) > 0 {
		writeLegend(colorA, labelA)
	}
	if len(seriesB) > 0 {
		writeLegend(colorB, labelB)
	}

	b.WriteString("</svg>")
	return []byte(b.String()), nil
}

// barRect clamps a bar to the plot area and returns its top and height.
func (f frame) barRect(value, zeroY float64) (top, height float64) {
	if value >= 0 {
		top = f.y(value)
		height = zeroY - top
	} else {
		top = zeroY
		height = f.y(value) - zeroY
	}
	if top < f.padding {
		height -= f.padding - top
		top = f.padding
	}
	if top+height > f.bottom() {
		height = f.bottom() - top
	}
	if height < 0 {
		height = 0
	}
	return top, height
}
