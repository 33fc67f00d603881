package kpihttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/kpi/svg"
)

// Chart endpoints render the two dashboard figures server-side. They
// bypass the JSON cache: the SVG is cheap to build once the lines are
// aggregated and the payload is not a cacheable API shape.

const maxChartAgents = 12

func (h *Handler) serveSVG(w http.ResponseWriter, r *http.Request, render func(ctx context.Context, e *engines) ([]byte, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	e, err := h.engines(ctx)
	if err != nil {
		h.respondError(w, err)
		return
	}
	doc, err := render(ctx, e)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	if _, err := w.Write(doc); err != nil {
		h.logger.Error("write chart", slog.Any("error", err))
	}
}

func (h *Handler) handleBillingChart(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveSVG(w, r, func(ctx context.Context, e *engines) ([]byte, error) {
		points, err := e.billing.NetBillingTimeseries(p.billingParams(), p.Cum)
		if err != nil {
			return nil, err
		}
		series := []float64{0}
		labels := []string{""}
		if len(points) > 0 {
			series = make([]float64, len(points))
			labels = make([]string, len(points))
		}
		for i, pt := range points {
			if p.Unit == kpi.UnitWeight {
				series[i] = pt.Weight
			} else {
				series[i] = pt.Money
			}
			labels[i] = pt.Date.Format("02/01")
		}
		// Thin out the x labels on long windows so they stay readable.
		if stride := len(labels)/15 + 1; stride > 1 {
			for i := range labels {
				if i%stride != 0 {
					labels[i] = ""
				}
			}
		}
		title := fmt.Sprintf("Facturación neta %04d-%02d", p.Year, p.Month)
		return svg.Line(svg.DefaultWidth, svg.DefaultHeight, series, labels, svg.LineOpts{
			Title:       title,
			Description: "Facturación neta diaria",
			ShowDots:    len(points) <= 31,
		})
	})
}

func (h *Handler) handleAgingChart(w http.ResponseWriter, r *http.Request) {
	h.serveSVG(w, r, func(ctx context.Context, e *engines) ([]byte, error) {
		rows, err := e.aging.AgingByAgentCollapsed()
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return svg.Bars(svg.DefaultWidth, svg.DefaultHeight,
				[]float64{0}, []float64{0}, []string{"sin cartera"}, svg.BarOpts{
					Title:        "Cartera por agente",
					SeriesALabel: "Al día",
					SeriesBLabel: "Vencido",
				})
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Current+rows[i].Overdue > rows[j].Current+rows[j].Overdue
		})
		if len(rows) > maxChartAgents {
			rows = rows[:maxChartAgents]
		}
		current := make([]float64, len(rows))
		overdue := make([]float64, len(rows))
		labels := make([]string, len(rows))
		for i, row := range rows {
			current[i] = row.Current
			overdue[i] = row.Overdue
			labels[i] = row.AgentName
		}
		return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, current, overdue, labels, svg.BarOpts{
			Title:        "Cartera por agente",
			Description:  "Saldo al día frente a saldo vencido por agente",
			SeriesALabel: "Al día",
			SeriesBLabel: "Vencido",
		})
	})
}
