// Package billing combines invoice lines and credit notes into net billing
// figures by window, classification, agent, and day bucket.
package billing

import (
	"log/slog"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// DefaultAdvanceProductCode is the reserved product code that marks a
// credit line as an advance-payment application rather than a return.
const DefaultAdvanceProductCode = "OTRO-40"

// CreditKind classifies a credit line for billing purposes.
type CreditKind string

// Credit classifications.
const (
	CreditAdvance       CreditKind = "AdvanceApplication"
	CreditDiscount      CreditKind = "Discount"
	CreditReturn        CreditKind = "Return"
	CreditUncategorized CreditKind = "Uncategorized"
)

// ClassOther is assigned to credits whose class cannot be resolved from a
// linked invoice.
const ClassOther = "OTRO"

// Params scope a billing query. Classes empty means no class filter;
// Agents is an allow-set of agent refs, empty means all agents.
type Params struct {
	Month  int
	Year   int
	Months int

	Classes []string
	Agents  []int
}

// Config carries engine-level policy.
type Config struct {
	// AdvanceProductCode overrides DefaultAdvanceProductCode.
	AdvanceProductCode string
	// AgentDenyList is excluded from every agent-level grouping.
	AgentDenyList []int
}

// Engine computes billing aggregates over one snapshot.
type Engine struct {
	snap        *source.Snapshot
	logger      *slog.Logger
	advanceCode string
	denyList    []int
}

// NewEngine builds a billing engine for the snapshot.
func NewEngine(snap *source.Snapshot, logger *slog.Logger, cfg Config) *Engine {
	advance := cfg.AdvanceProductCode
	if advance == "" {
		advance = DefaultAdvanceProductCode
	}
	deny := cfg.AgentDenyList
	if deny == nil {
		deny = taxonomy.DefaultAgentDenyList
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{snap: snap, logger: logger, advanceCode: advance, denyList: deny}
}

func (e *Engine) window(p Params) (period.Window, error) {
	return period.MonthWindow(p.Month, p.Year, p.Months)
}

func (e *Engine) agentFilter(p Params) taxonomy.AgentFilter {
	return taxonomy.NewAgentFilter(e.denyList, p.Agents)
}

// billedLine is an invoice line enriched with header, product, and master
// data, normalized to reference currency and weight.
type billedLine struct {
	Date       time.Time
	InvoiceID  string
	ClientRef  int
	ClientName string
	AgentRef   int
	ProductRef string
	ClassCode  string
	Money      float64
	Weight     float64
}

// creditLine is a classified credit note line normalized the same way.
// Weight is only carried for returns.
type creditLine struct {
	Date       time.Time
	NoteID     string
	Kind       CreditKind
	ClientRef  int
	ClientName string
	AgentRef   int
	ProductRef string
	ClassCode  string
	Money      float64
	Weight     float64
}

func (l billedLine) groupValue(key kpi.GroupKey) string {
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

func (l creditLine) groupValue(key kpi.GroupKey) string {
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
