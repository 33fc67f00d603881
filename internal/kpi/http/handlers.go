// Package kpihttp serves the dashboard's JSON API: one endpoint group per
// aggregator, backed by the versioned result cache and request collapsing.
package kpihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/laminex-bi/laminex-bi/internal/aging"
	"github.com/laminex-bi/laminex-bi/internal/billing"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/purchasing"
	"github.com/laminex-bi/laminex-bi/internal/salestrend"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/stockval"
)

const requestTimeout = 10 * time.Second

// SnapshotSource hands out the current source snapshot.
type SnapshotSource interface {
	Current(ctx context.Context) (*source.Snapshot, error)
}

// EngineConfig carries the business policies every engine receives.
type EngineConfig struct {
	AdvanceProductCode string
	AgentDenyList      []int
}

// Handler serves the KPI endpoints.
type Handler struct {
	logger    *slog.Logger
	snapshots SnapshotSource
	cache     *kpi.Cache
	validate  *validator.Validate
	group     singleflight.Group
	cfg       EngineConfig
	now       func() time.Time
}

// NewHandler constructs the KPI HTTP handler. cache may be nil, in which
// case every request computes directly.
func NewHandler(logger *slog.Logger, snapshots SnapshotSource, cache *kpi.Cache, cfg EngineConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		snapshots: snapshots,
		cache:     cache,
		validate:  validator.New(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithNow overrides the handler clock for tests.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// periodQuery is the common window selector. Zero month/year default to
// the current calendar month.
type periodQuery struct {
	Month  int `validate:"min=0,max=12"`
	Year   int `validate:"min=0,max=9999"`
	Months int `validate:"min=1,max=36"`

	Classes []string
	Agents  []int
	Unit    kpi.Unit
	Group   kpi.GroupKey
	WithBU  bool
	Cum     bool
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handler) parsePeriod(r *http.Request) (periodQuery, error) {
	q := r.URL.Query()
	now := h.now().UTC()

	p := periodQuery{Months: 1}
	var err error
	intParam := func(name string, dest *int) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" || err != nil {
			return
		}
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			err = validationError{field: name}
			return
		}
		*dest = v
	}
	intParam("month", &p.Month)
	intParam("year", &p.Year)
	intParam("months", &p.Months)
	if err != nil {
		return periodQuery{}, err
	}
	if p.Month == 0 {
		p.Month = int(now.Month())
	}
	if p.Year == 0 {
		p.Year = now.Year()
	}

	p.Classes = splitList(q.Get("classes"))
	for _, raw := range splitList(q.Get("agents")) {
		ref, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return periodQuery{}, validationError{field: "agents"}
		}
		p.Agents = append(p.Agents, ref)
	}

	unit, unitErr := kpi.ParseUnit(q.Get("unit"))
	if unitErr != nil {
		return periodQuery{}, unitErr
	}
	p.Unit = unit

	if raw := q.Get("group"); raw != "" {
		group, groupErr := kpi.ParseGroupKey(raw)
		if groupErr != nil {
			return periodQuery{}, groupErr
		}
		p.Group = group
	}
	p.WithBU = q.Get("with_business_unit") == "true"
	p.Cum = q.Get("cumulative") == "true"

	if err := h.validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return periodQuery{}, validationError{field: strings.ToLower(fieldErrs[0].Field())}
		}
		return periodQuery{}, err
	}
	return p, nil
}

func (p periodQuery) billingParams() billing.Params {
	return billing.Params{Month: p.Month, Year: p.Year, Months: p.Months,
		Classes: p.Classes, Agents: p.Agents}
}

func (p periodQuery) salesParams() salestrend.Params {
	return salestrend.Params{Month: p.Month, Year: p.Year, Months: p.Months,
		Classes: p.Classes, Agents: p.Agents}
}

func (p periodQuery) purchasingParams() purchasing.Params {
	return purchasing.Params{Month: p.Month, Year: p.Year, Months: p.Months}
}

func (p periodQuery) cacheParts(op string) []string {
	parts := []string{"kpi", op,
		strconv.Itoa(p.Year), strconv.Itoa(p.Month), strconv.Itoa(p.Months),
		string(p.Unit), string(p.Group),
		strconv.FormatBool(p.WithBU), strconv.FormatBool(p.Cum)}
	if len(p.Classes) > 0 {
		parts = append(parts, strings.Join(p.Classes, ","))
	}
	if len(p.Agents) > 0 {
		refs := make([]string, len(p.Agents))
		for i, a := range p.Agents {
			refs[i] = strconv.Itoa(a)
		}
		parts = append(parts, strings.Join(refs, ","))
	}
	return parts
}

// engines bundles the per-request aggregators over one snapshot.
type engines struct {
	snap       *source.Snapshot
	billing    *billing.Engine
	sales      *salestrend.Engine
	purchasing *purchasing.Engine
	stock      *stockval.Engine
	aging      *aging.Engine
}

func (h *Handler) engines(ctx context.Context) (*engines, error) {
	snap, err := h.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	asOf := snap.TakenAt
	if asOf.IsZero() {
		asOf = h.now().UTC()
	}
	return &engines{
		snap: snap,
		billing: billing.NewEngine(snap, h.logger, billing.Config{
			AdvanceProductCode: h.cfg.AdvanceProductCode,
			AgentDenyList:      h.cfg.AgentDenyList,
		}),
		sales: salestrend.NewEngine(snap, h.logger, salestrend.Config{
			AdvanceProductCode: h.cfg.AdvanceProductCode,
			AgentDenyList:      h.cfg.AgentDenyList,
		}),
		purchasing: purchasing.NewEngine(snap, h.logger),
		stock:      stockval.NewEngine(snap, h.logger),
		aging:      aging.NewEngine(snap, h.logger, asOf),
	}, nil
}

// serveJSON computes (or fetches) the payload under a versioned cache key
// and writes it. Identical in-flight requests collapse onto one compute.
func (h *Handler) serveJSON(w http.ResponseWriter, r *http.Request, parts []string, compute func(ctx context.Context, e *engines) (interface{}, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	key, err := h.cache.BuildKey(ctx, parts...)
	if err != nil {
		h.logger.Warn("cache key", slog.Any("error", err))
		key = strings.Join(parts, ":")
	}

	payload, err, _ := h.group.Do(key, func() (interface{}, error) {
		var raw json.RawMessage
		err := h.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (interface{}, error) {
			e, err := h.engines(ctx)
			if err != nil {
				return nil, err
			}
			return compute(ctx, e)
		})
		return raw, err
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := w.Write(payload.(json.RawMessage)); err != nil {
		h.logger.Error("write response", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var fetchErr *source.FetchError
	status := http.StatusInternalServerError
	switch {
	case kpi.IsInputError(err) || isValidationError(err):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr), errors.Is(err, source.ErrNoSnapshot):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("kpi request", slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return "invalid parameter: " + v.field
}

func isValidationError(err error) bool {
	var v validationError
	return errors.As(err, &v)
}

// --- billing -----------------------------------------------------------

func (h *Handler) handleNetBilling(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("billing.net"), func(ctx context.Context, e *engines) (interface{}, error) {
		net, err := e.billing.NetBilling(p.billingParams(), p.Unit)
		if err != nil {
			return nil, err
		}
		return map[string]float64{"net": net}, nil
	})
}

func (h *Handler) handleBillingByAgent(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("billing.agents"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.billing.NetBillingByAgent(p.billingParams(), p.WithBU)
	})
}

func (h *Handler) handleBillingByGroup(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if p.Group == "" {
		h.respondError(w, validationError{field: "group"})
		return
	}
	h.serveJSON(w, r, p.cacheParts("billing.groups"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.billing.NetBillingByColumn(p.billingParams(), p.Group)
	})
}

func (h *Handler) handleBillingTimeseries(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("billing.timeseries"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.billing.NetBillingTimeseries(p.billingParams(), p.Cum)
	})
}

func (h *Handler) handleBillingPivot(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("billing.pivot"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.billing.ByBusinessUnitAndClass(p.billingParams(), p.Unit)
	})
}

func (h *Handler) handleBillingBreakdown(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	group := p.Group
	if group == "" {
		group = kpi.GroupByClass
	}
	h.serveJSON(w, r, p.cacheParts("billing.breakdown"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.billing.Breakdown(p.billingParams(), group)
	})
}

// --- sales dashboard ---------------------------------------------------

// salesDashboard is the headline payload, computed fan-out.
type salesDashboard struct {
	NetBilling        float64 `json:"netBilling"`
	NetBillingWeight  float64 `json:"netBillingWeight"`
	DayBilling        float64 `json:"dayBilling"`
	SuppliedPercent   float64 `json:"suppliedPercent"`
	SalesOrders       float64 `json:"salesOrders"`
	ToBeSupplied      float64 `json:"toBeSupplied"`
	AvgPricePerKg     float64 `json:"avgPricePerKg"`
	SnapshotTakenAt   string  `json:"snapshotTakenAt"`
	SnapshotReference string  `json:"snapshotReference"`
}

func (h *Handler) handleSalesDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("sales.dashboard"), func(ctx context.Context, e *engines) (interface{}, error) {
		var d salesDashboard
		d.SnapshotTakenAt = e.snap.TakenAt.UTC().Format(time.RFC3339)
		d.SnapshotReference = e.snap.ID

		bp := p.billingParams()
		sp := p.salesParams()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			net, err := e.billing.NetBilling(bp, kpi.UnitMoney)
			if err == nil {
				d.NetBilling = net
			}
			return err
		})
		g.Go(func() error {
			kg, err := e.billing.NetBilling(bp, kpi.UnitWeight)
			if err == nil {
				d.NetBillingWeight = kg
			}
			return err
		})
		g.Go(func() error {
			day, err := e.billing.DayBilling(h.now().UTC(), bp.Classes, bp.Agents, kpi.UnitMoney)
			if err == nil {
				d.DayBilling = day
			}
			return err
		})
		g.Go(func() error {
			pct, err := e.sales.SuppliedPercentage(sp, kpi.UnitMoney)
			if err == nil {
				d.SuppliedPercent = pct
			}
			return err
		})
		g.Go(func() error {
			total, err := e.sales.SalesOrdersAmount(sp, kpi.UnitMoney)
			if err == nil {
				d.SalesOrders = total
			}
			return err
		})
		g.Go(func() error {
			open, err := e.sales.ToBeSuppliedAmount(sp, kpi.UnitMoney, salestrend.TrendLookbackMonths)
			if err == nil {
				d.ToBeSupplied = open
			}
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if d.NetBillingWeight != 0 {
			d.AvgPricePerKg = d.NetBilling / d.NetBillingWeight
		}
		return d, nil
	})
}

func (h *Handler) handleSalesTrend(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("sales.trend"), func(ctx context.Context, e *engines) (interface{}, error) {
		if p.Group != "" {
			return e.sales.SOAndTrendByColumn(p.salesParams(), p.Group)
		}
		return e.sales.TrendByAgent(p.salesParams(), p.WithBU)
	})
}

func (h *Handler) handleSalesOrdersByAgent(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("sales.agents"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.sales.OrdersByAgent(p.salesParams(), p.WithBU)
	})
}

func (h *Handler) handleSalesTimeseries(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("sales.timeseries"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.sales.Timeseries(p.salesParams(), p.Cum)
	})
}

func (h *Handler) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("sales.orderbook"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.sales.OrderBook(p.salesParams())
	})
}

// --- purchasing --------------------------------------------------------

func (h *Handler) handlePurchasePrices(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	flat := r.URL.Query().Get("flat") == "true"
	parts := append(p.cacheParts("purchasing.prices"), strconv.FormatBool(flat))
	h.serveJSON(w, r, parts, func(ctx context.Context, e *engines) (interface{}, error) {
		if flat {
			return e.purchasing.AveragePriceBySubClass(p.purchasingParams())
		}
		return e.purchasing.AveragePriceBySubClassAndSupplier(p.purchasingParams())
	})
}

func (h *Handler) handlePurchaseTimeseries(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("purchasing.timeseries"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.purchasing.PriceTimeseries(p.purchasingParams())
	})
}

func (h *Handler) handlePurchaseSavings(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("purchasing.savings"), func(ctx context.Context, e *engines) (interface{}, error) {
		savings, err := e.purchasing.MonthOverMonthSavings(p.purchasingParams())
		if errors.Is(err, purchasing.ErrNoComparableMonths) {
			return map[string]interface{}{"savings": 0.0, "comparable": false}, nil
		}
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"savings": savings, "comparable": true}, nil
	})
}

func (h *Handler) handlePurchaseOutstanding(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("purchasing.outstanding"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.purchasing.OutstandingPurchasesBySubClass(p.purchasingParams())
	})
}

func (h *Handler) handleProductionCosts(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePeriod(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.serveJSON(w, r, p.cacheParts("purchasing.production"), func(ctx context.Context, e *engines) (interface{}, error) {
		return e.purchasing.ProductionCosts(p.purchasingParams())
	})
}

// --- stock -------------------------------------------------------------

func (h *Handler) stockParams(r *http.Request) stockval.Params {
	q := r.URL.Query()
	mode := stockval.FinishedGoods
	if q.Get("mode") == string(stockval.RawMaterials) {
		mode = stockval.RawMaterials
	}
	return stockval.Params{
		Mode:          mode,
		Classes:       splitList(q.Get("classes")),
		BusinessUnits: splitList(q.Get("business_units")),
		SubClasses:    splitList(q.Get("sub_classes")),
		Locations:     splitList(q.Get("locations")),
	}
}

func (h *Handler) handleStockValuation(w http.ResponseWriter, r *http.Request) {
	p := h.stockParams(r)
	parts := []string{"kpi", "stock.valuation", string(p.Mode),
		strings.Join(p.Classes, ","), strings.Join(p.BusinessUnits, ","),
		strings.Join(p.SubClasses, ","), strings.Join(p.Locations, ",")}
	h.serveJSON(w, r, parts, func(ctx context.Context, e *engines) (interface{}, error) {
		return e.stock.StockValuation(p)
	})
}

func (h *Handler) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	p := h.stockParams(r)
	parts := []string{"kpi", "stock.detail", string(p.Mode),
		strings.Join(p.Classes, ","), strings.Join(p.BusinessUnits, ","),
		strings.Join(p.SubClasses, ","), strings.Join(p.Locations, ",")}
	h.serveJSON(w, r, parts, func(ctx context.Context, e *engines) (interface{}, error) {
		return e.stock.StockDetail(p)
	})
}

// --- aging -------------------------------------------------------------

func (h *Handler) handleAgingClients(w http.ResponseWriter, r *http.Request) {
	h.serveJSON(w, r, []string{"kpi", "aging.clients"}, func(ctx context.Context, e *engines) (interface{}, error) {
		return e.aging.AgingByClient()
	})
}

func (h *Handler) handleAgingAgents(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("collapsed") == "true" {
		h.serveJSON(w, r, []string{"kpi", "aging.agents.collapsed"}, func(ctx context.Context, e *engines) (interface{}, error) {
			return e.aging.AgingByAgentCollapsed()
		})
		return
	}
	h.serveJSON(w, r, []string{"kpi", "aging.agents"}, func(ctx context.Context, e *engines) (interface{}, error) {
		return e.aging.AgingByAgent()
	})
}

func (h *Handler) handleAgingSummary(w http.ResponseWriter, r *http.Request) {
	h.serveJSON(w, r, []string{"kpi", "aging.summary"}, func(ctx context.Context, e *engines) (interface{}, error) {
		return e.aging.PortfolioSummary()
	})
}

func (h *Handler) handleAgingInvoices(w http.ResponseWriter, r *http.Request) {
	h.serveJSON(w, r, []string{"kpi", "aging.invoices"}, func(ctx context.Context, e *engines) (interface{}, error) {
		return e.aging.InvoiceDetail()
	})
}
