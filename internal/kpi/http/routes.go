package kpihttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the KPI endpoints onto the router. Export
// downloads are rate limited per client IP.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/kpi", func(r chi.Router) {
		r.Route("/billing", func(r chi.Router) {
			r.Get("/net", h.handleNetBilling)
			r.Get("/agents", h.handleBillingByAgent)
			r.Get("/groups", h.handleBillingByGroup)
			r.Get("/timeseries", h.handleBillingTimeseries)
			r.Get("/pivot", h.handleBillingPivot)
			r.Get("/breakdown", h.handleBillingBreakdown)
		})
		r.Route("/sales", func(r chi.Router) {
			r.Get("/dashboard", h.handleSalesDashboard)
			r.Get("/trend", h.handleSalesTrend)
			r.Get("/agents", h.handleSalesOrdersByAgent)
			r.Get("/timeseries", h.handleSalesTimeseries)
			r.Get("/orderbook", h.handleOrderBook)
		})
		r.Route("/purchasing", func(r chi.Router) {
			r.Get("/prices", h.handlePurchasePrices)
			r.Get("/timeseries", h.handlePurchaseTimeseries)
			r.Get("/savings", h.handlePurchaseSavings)
			r.Get("/outstanding", h.handlePurchaseOutstanding)
			r.Get("/production", h.handleProductionCosts)
		})
		r.Route("/stock", func(r chi.Router) {
			r.Get("/valuation", h.handleStockValuation)
			r.Get("/detail", h.handleStockDetail)
		})
		r.Route("/aging", func(r chi.Router) {
			r.Get("/clients", h.handleAgingClients)
			r.Get("/agents", h.handleAgingAgents)
			r.Get("/summary", h.handleAgingSummary)
			r.Get("/invoices", h.handleAgingInvoices)
		})
		r.Route("/charts", func(r chi.Router) {
			r.Get("/billing.svg", h.handleBillingChart)
			r.Get("/aging.svg", h.handleAgingChart)
		})
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export/billing.csv", h.handleBillingCSV)
			gr.Get("/export/dashboard.xlsx", h.handleDashboardXLSX)
		})
	})
}
