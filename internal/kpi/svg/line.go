package svg

import (
	"fmt"
	"strings"
)

// Line renders a single-series line chart with one label per point.
func Line(width, height int, series []float64, labels []string, opts LineOpts) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("svg: series required")
	}
	if len(series) != len(labels) {
		return nil, fmt.Errorf("svg: labels length must match series")
	}

	minVal, maxVal := seriesBounds(series)
	f, err := newFrame(width, height, opts.Padding, minVal, maxVal)
	if err != nil {
		return nil, err
	}

	strokeColor := orDefault(opts.StrokeColor, "#2563eb")
	fillColor := orDefault(opts.FillColor, "rgba(37,99,235,0.12)")
	axisColor := orDefault(opts.AxisColor, "#475569")
	gridColor := orDefault(opts.GridColor, "#cbd5f5")

	xAt := func(i int) float64 {
		if len(series) == 1 {
			return f.padding + f.plotW/2
		}
		return f.padding + float64(i)*f.plotW/float64(len(series)-1)
	}

	var path strings.Builder
	for i, value := range series {
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xAt(i), f.y(value))
	}

	var b strings.Builder
	openDocument(&b, f, opts.Title, opts.Description, "Line chart", "Trend data")
	f.writeGrid(&b, opts.TickCount, gridColor, axisColor)
	f.writeAxes(&b, axisColor, f.bottom())

	if fillColor != "" {
		area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z",
			path.String(), xAt(len(series)-1), f.bottom(), xAt(0), f.bottom())
		fmt.Fprintf(&b, `<path d="%s" fill="%s" stroke="none" aria-hidden="true"/>`, area, fillColor)
	}
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"/>`,
		path.String(), strokeColor)

	if opts.ShowDots {
		for i, value := range series {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"/>`, xAt(i), f.y(value), strokeColor)
		}
	}

	for i, label := range labels {
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			xAt(i), f.bottom()+14, axisColor, escape(label))
	}

	b.WriteString("</svg>")
	return []byte(b.String()), nil
}
