// Package purchasing aggregates raw-material purchase orders into
// weighted-average price, outstanding backlog, and month-over-month
// savings figures, plus the production cost table.
package purchasing

import (
	"log/slog"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// Params selects the lookback window and optional material filters. Empty
// filters default to the raw-material taxonomy.
type Params struct {
	Month         int
	Year          int
	Months        int
	Classes       []string
	BusinessUnits []string
	SubClasses    []string
}

// Engine computes purchase aggregates over one snapshot.
type Engine struct {
	snap   *source.Snapshot
	logger *slog.Logger
}

// NewEngine builds a purchasing engine for the snapshot.
func NewEngine(snap *source.Snapshot, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{snap: snap, logger: logger}
}

func (e *Engine) window(p Params) (period.Window, error) {
	return period.MonthWindow(p.Month, p.Year, p.Months)
}

// purchaseLine is a purchase-order line joined to its header and the
// product master, normalized to reference currency and weight. The zero
// weight factor is mapped to 1 before conversion.
type purchaseLine struct {
	Date              time.Time
	OrderID           string
	SupplierRef       int
	SupplierName      string
	ProductRef        string
	ClassCode         string
	SubClass          string
	SubSubClass       string
	Fulfillment       string
	Money             float64
	Weight            float64
	OutstandingMoney  float64
	OutstandingWeight float64
}

func (l purchaseLine) open() bool {
	return l.Fulfillment != source.FulfillmentFulfilled
}

func (l purchaseLine) businessUnit() string {
	return taxonomy.RawMaterialBusinessUnit(l.SubSubClass)
}
