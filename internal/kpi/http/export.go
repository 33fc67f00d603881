package kpihttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/kpi/export"
	"github.com/laminex-bi/laminex-bi/internal/stockval"
)

// handleBillingCSV streams the grouped net-billing table. Downloads
// bypass the JSON result cache; they always reflect the live snapshot.
func (h *Handler) handleBillingCSV(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	group := p.Group
	if group == "" {
		group = kpi.GroupByClass
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	e, err := h.engines(ctx)
	if err != nil {
		h.respondError(w, err)
		return
	}
	rows, err := e.billing.NetBillingByColumn(p.billingParams(), group)
	if err != nil {
		h.respondError(w, err)
		return
	}

	buf := &bytes.Buffer{}
	if err := export.WriteGroupCSV(buf, rows); err != nil {
		h.respondError(w, err)
		return
	}

	filename := fmt.Sprintf("facturacion-%04d-%02d.csv", p.Year, p.Month)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

// handleDashboardXLSX streams a multi-sheet workbook covering the main
// dashboard tables.
func (h *Handler) handleDashboardXLSX(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	e, err := h.engines(ctx)
	if err != nil {
		h.respondError(w, err)
		return
	}

	pivot, err := e.billing.ByBusinessUnitAndClass(p.billingParams(), p.Unit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	groups, err := e.billing.NetBillingByColumn(p.billingParams(), kpi.GroupByClass)
	if err != nil {
		h.respondError(w, err)
		return
	}
	book, err := e.sales.OrderBook(p.salesParams())
	if err != nil {
		h.respondError(w, err)
		return
	}
	valuation, err := e.stock.StockValuation(stockval.Params{Mode: stockval.FinishedGoods})
	if err != nil {
		h.respondError(w, err)
		return
	}
	agingPivot, err := e.aging.AgingByClient()
	if err != nil {
		h.respondError(w, err)
		return
	}

	netMoney, err := e.billing.NetBilling(p.billingParams(), kpi.UnitMoney)
	if err != nil {
		h.respondError(w, err)
		return
	}
	netWeight, err := e.billing.NetBilling(p.billingParams(), kpi.UnitWeight)
	if err != nil {
		h.respondError(w, err)
		return
	}
	supplied, err := e.sales.SuppliedPercentage(p.salesParams(), kpi.UnitMoney)
	if err != nil {
		h.respondError(w, err)
		return
	}

	summary := []export.SummaryEntry{
		{Label: "Facturación neta", Value: kpi.FormatCurrency(netMoney)},
		{Label: "Kilos netos", Value: kpi.FormatWeight(netWeight)},
		{Label: "Surtido", Value: kpi.FormatPercent(supplied, false)},
	}

	buf := &bytes.Buffer{}
	err = export.NewWorkbook().
		AddSummarySheet("Resumen", summary).
		AddPivotSheet("Facturación", pivot).
		AddGroupSheet("Por Clase", groups).
		AddOrderBookSheet("Pedidos", book).
		AddValuationSheet("Inventario", valuation).
		AddPivotSheet("Cartera", agingPivot).
		WriteTo(buf)
	if err != nil {
		h.respondError(w, err)
		return
	}

	filename := fmt.Sprintf("tablero-%s.xlsx", time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream xlsx", slog.Any("error", err))
	}
}
