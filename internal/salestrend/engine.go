// Package salestrend aggregates the sales-order book into ordered,
// outstanding, and trend figures combining backlog with recent billing.
package salestrend

import (
	"log/slog"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/billing"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// TrendLookbackMonths is how far back outstanding orders reach when
// computing the per-agent trend.
const TrendLookbackMonths = 6

// Params selects the window and optional filters for an aggregation.
type Params struct {
	Month   int
	Year    int
	Months  int
	Classes []string
	Agents  []int
}

func (p Params) billingParams() billing.Params {
	return billing.Params{
		Month:   p.Month,
		Year:    p.Year,
		Months:  p.Months,
		Classes: p.Classes,
		Agents:  p.Agents,
	}
}

// Config carries the engine policies. Zero values fall back to the
// defaults used by the billing engine.
type Config struct {
	AdvanceProductCode string
	AgentDenyList      []int
}

// Engine computes sales-order aggregates over one snapshot.
type Engine struct {
	snap     *source.Snapshot
	logger   *slog.Logger
	denyList []int
	billing  *billing.Engine
}

// NewEngine builds a sales-order engine for the snapshot.
func NewEngine(snap *source.Snapshot, logger *slog.Logger, cfg Config) *Engine {
	deny := cfg.AgentDenyList
	if deny == nil {
		deny = taxonomy.DefaultAgentDenyList
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		snap:     snap,
		logger:   logger,
		denyList: deny,
		billing: billing.NewEngine(snap, logger, billing.Config{
			AdvanceProductCode: cfg.AdvanceProductCode,
			AgentDenyList:      cfg.AgentDenyList,
		}),
	}
}

func (e *Engine) window(p Params) (period.Window, error) {
	return period.MonthWindow(p.Month, p.Year, p.Months)
}

func (e *Engine) agentFilter(p Params) taxonomy.AgentFilter {
	return taxonomy.NewAgentFilter(e.denyList, p.Agents)
}

// orderLine is a sales-order line joined to its header and the product
// master, normalized to reference currency and weight. Outstanding fields
// are 0 on fulfilled lines.
type orderLine struct {
	OrderID           string
	CreatedAt         time.Time
	DeliveryDate      time.Time
	ClientRef         int
	ClientName        string
	AgentRef          int
	ProductRef        string
	ClassCode         string
	Fulfillment       string
	Qty               float64
	Outstanding       float64
	UnitPrice         float64
	Money             float64
	Weight            float64
	OutstandingMoney  float64
	OutstandingWeight float64
}

func (l orderLine) groupValue(key kpi.GroupKey) string {
	switch key {
	case kpi.GroupByClass:
		return l.ClassCode
	case kpi.GroupByBusinessUnit:
		return taxonomy.BusinessUnit(l.ClassCode)
	case kpi.GroupByClient:
		return l.ClientName
	case kpi.GroupByProduct:
		return l.ProductRef
	}
	return l.ClassCode
}

func (l orderLine) open() bool {
	return l.Fulfillment != source.FulfillmentFulfilled
}
