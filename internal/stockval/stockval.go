// Package stockval values the on-hand inventory: stock positions joined
// to the product master, normalized to reference weight, grouped by
// material sub-class.
package stockval

import (
	"log/slog"
	"sort"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/normalize"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// Mode selects which side of the product taxonomy a valuation covers.
type Mode string

// Valuation modes.
const (
	FinishedGoods Mode = "finished_goods"
	RawMaterials  Mode = "raw_materials"
)

// Params filters the valuation. Empty filters keep everything the mode
// covers.
type Params struct {
	Mode          Mode
	Classes       []string
	BusinessUnits []string
	SubClasses    []string
	Locations     []string
}

// Engine values stock positions over one snapshot.
type Engine struct {
	snap   *source.Snapshot
	logger *slog.Logger
}

// NewEngine builds a valuation engine for the snapshot.
func NewEngine(snap *source.Snapshot, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{snap: snap, logger: logger}
}

// stockLine is a stock position joined to its product master row.
type stockLine struct {
	ProductRef   string
	Description  string
	Location     string
	ClassCode    string
	SubClass     string
	BusinessUnit string
	Qty          float64
	Weight       float64
	AvgCost      float64
	Value        float64
}

func inSet(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// stockLines joins positions to the product master and applies the mode's
// taxonomy and the param filters. Weight applies the conversion factor
// only when the product unit differs from the reference unit; raw-material
// products with a zero factor count as factor 1.
func (e *Engine) stockLines(p Params) []stockLine {
	products := e.snap.ProductIndex()

	var out []stockLine
	for _, pos := range e.snap.StockPositions {
		product, ok := products[pos.ProductRef]
		if !ok {
			continue
		}

		var unit string
		switch p.Mode {
		case RawMaterials:
			unit = taxonomy.RawMaterialBusinessUnit(product.SubSubClass)
		default:
			unit = taxonomy.BusinessUnit(product.ClassCode)
		}
		if !inSet(p.Classes, product.ClassCode) {
			continue
		}
		if !inSet(p.BusinessUnits, unit) {
			continue
		}
		if !inSet(p.SubClasses, product.SubClass) {
			continue
		}
		if !inSet(p.Locations, pos.Location) {
			continue
		}

		factor := product.WeightFactor
		if p.Mode == RawMaterials {
			factor = normalize.SafeFactor(factor)
		}
		out = append(out, stockLine{
			ProductRef:   pos.ProductRef,
			Description:  product.Description,
			Location:     pos.Location,
			ClassCode:    product.ClassCode,
			SubClass:     product.SubClass,
			BusinessUnit: unit,
			Qty:          pos.Qty,
			Weight:       normalize.Weight(pos.Qty, product.Unit, factor),
			AvgCost:      pos.AvgCost,
			Value:        pos.Qty * pos.AvgCost,
		})
	}
	return out
}

// ValuationRow is the valuation of one material sub-class. AvgCost is
// total value over total weight, 0 when there is no weight.
type ValuationRow struct {
	SubClass string  `json:"subClass"`
	Weight   float64 `json:"weight"`
	Value    float64 `json:"value"`
	MinCost  float64 `json:"minCost"`
	MaxCost  float64 `json:"maxCost"`
	AvgCost  float64 `json:"avgCost"`
}

// StockValuation groups the filtered stock by sub-class: total reference
// weight, total value, min/max unit cost, and the weighted-average cost.
func (e *Engine) StockValuation(p Params) ([]ValuationRow, error) {
	lines := e.stockLines(p)

	groups := dataset.IndexAll(lines, func(l stockLine) string { return l.SubClass })
	rows := make([]ValuationRow, 0, len(groups))
	for _, sc := range dataset.SortedKeys(groups) {
		group := groups[sc]
		weight := dataset.Sum(group, func(l stockLine) float64 { return l.Weight })
		value := dataset.Sum(group, func(l stockLine) float64 { return l.Value })
		minCost, maxCost := dataset.MinMax(group, func(l stockLine) float64 { return l.AvgCost })
		rows = append(rows, ValuationRow{
			SubClass: sc,
			Weight:   weight,
			Value:    value,
			MinCost:  minCost,
			MaxCost:  maxCost,
			AvgCost:  dataset.Ratio(value, weight),
		})
	}
	return rows, nil
}

// DetailRow is one stock position for the drill-down table.
type DetailRow struct {
	ProductRef   string  `json:"productRef"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	ClassCode    string  `json:"classCode"`
	SubClass     string  `json:"subClass"`
	BusinessUnit string  `json:"businessUnit"`
	Qty          float64 `json:"qty"`
	Weight       float64 `json:"weight"`
	AvgCost      float64 `json:"avgCost"`
	Value        float64 `json:"value"`
}

// StockDetail lists the filtered positions sorted by sub-class, then
// product.
func (e *Engine) StockDetail(p Params) ([]DetailRow, error) {
	lines := e.stockLines(p)

	rows := make([]DetailRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, DetailRow(l))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SubClass != rows[j].SubClass {
			return rows[i].SubClass < rows[j].SubClass
		}
		return rows[i].ProductRef < rows[j].ProductRef
	})
	return rows, nil
}
