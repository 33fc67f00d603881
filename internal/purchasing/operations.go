package purchasing

import (
	"errors"
	"sort"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
)

// ErrNoComparableMonths reports that the savings window did not contain two
// months with purchase data. The 0 result that accompanies it is a
// business outcome, not a failure.
var ErrNoComparableMonths = errors.New("purchasing: no two comparable months with purchases")

// AveragePriceBySubClassAndSupplier pivots the weighted-average purchase
// price into supplier rows and sub-class columns. The weight is the
// purchased reference weight; cells with no purchases stay 0.
func (e *Engine) AveragePriceBySubClassAndSupplier(p Params) (kpi.Pivot, error) {
	win, err := e.window(p)
	if err != nil {
		return kpi.Pivot{}, err
	}
	lines := e.purchaseLines(p, win)

	type cellKey struct{ supplier, subClass string }
	type sums struct{ money, weight float64 }
	acc := dataset.GroupReduce(lines,
		func(l purchaseLine) cellKey { return cellKey{l.SupplierName, l.SubClass} },
		func(s sums, l purchaseLine) sums {
			s.money += l.Money
			s.weight += l.Weight
			return s
		})

	cells := make(map[string]map[string]float64)
	colSet := make(map[string]struct{})
	for k, s := range acc {
		if cells[k.supplier] == nil {
			cells[k.supplier] = make(map[string]float64)
		}
		cells[k.supplier][k.subClass] = dataset.Ratio(s.money, s.weight)
		colSet[k.subClass] = struct{}{}
	}
	return kpi.Pivot{
		RowLabel: "supplier",
		Rows:     dataset.SortedKeys(cells),
		Cols:     dataset.SortedKeys(colSet),
		Cells:    cells,
	}, nil
}

// SubClassPrice is the weighted-average price of one material sub-class.
type SubClassPrice struct {
	SubClass  string  `json:"subClass"`
	AvgPrice  float64 `json:"avgPrice"`
	Money     float64 `json:"money"`
	Weight    float64 `json:"weight"`
	LineCount int     `json:"lineCount"`
}

// AveragePriceBySubClass is the flat, supplier-independent variant.
func (e *Engine) AveragePriceBySubClass(p Params) ([]SubClassPrice, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	lines := e.purchaseLines(p, win)

	acc := dataset.GroupReduce(lines,
		func(l purchaseLine) string { return l.SubClass },
		func(s SubClassPrice, l purchaseLine) SubClassPrice {
			s.Money += l.Money
			s.Weight += l.Weight
			s.LineCount++
			return s
		})

	rows := make([]SubClassPrice, 0, len(acc))
	for _, sc := range dataset.SortedKeys(acc) {
		row := acc[sc]
		row.SubClass = sc
		row.AvgPrice = dataset.Ratio(row.Money, row.Weight)
		rows = append(rows, row)
	}
	return rows, nil
}

// PriceTimeseries returns one series per material sub-class, each point
// the weighted-average price for a calendar month inside the window.
// Months without purchases for a sub-class produce no point.
func (e *Engine) PriceTimeseries(p Params) ([]kpi.Series, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	lines := e.purchaseLines(p, win)

	type bucket struct {
		subClass string
		month    period.MonthKey
	}
	type sums struct{ money, weight float64 }
	acc := dataset.GroupReduce(lines,
		func(l purchaseLine) bucket { return bucket{l.SubClass, period.KeyOf(l.Date)} },
		func(s sums, l purchaseLine) sums {
			s.money += l.Money
			s.weight += l.Weight
			return s
		})

	bySub := make(map[string][]kpi.Point)
	for b, s := range acc {
		bySub[b.subClass] = append(bySub[b.subClass], kpi.Point{
			Date:  b.month.Time(),
			Value: dataset.Ratio(s.money, s.weight),
		})
	}

	series := make([]kpi.Series, 0, len(bySub))
	for _, sc := range dataset.SortedKeys(bySub) {
		points := bySub[sc]
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		series = append(series, kpi.Series{Name: sc, Points: points})
	}
	return series, nil
}

// MonthOverMonthSavings compares the two most recent calendar months with
// purchases inside a two-month window: for each sub-class,
// (previous average − current average) × current month weight, summed.
// When either month has no purchases the result is 0 together with the
// ErrNoComparableMonths signal.
func (e *Engine) MonthOverMonthSavings(p Params) (float64, error) {
	p.Months = 2
	win, err := e.window(p)
	if err != nil {
		return 0, err
	}
	lines := e.purchaseLines(p, win)

	monthSet := make(map[period.MonthKey]struct{})
	for _, l := range lines {
		monthSet[period.KeyOf(l.Date)] = struct{}{}
	}
	if len(monthSet) < 2 {
		return 0, ErrNoComparableMonths
	}
	months := make([]period.MonthKey, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	previous, current := months[len(months)-2], months[len(months)-1]

	type sums struct{ money, weight float64 }
	monthSums := func(month period.MonthKey) map[string]sums {
		return dataset.GroupReduce(
			dataset.Filter(lines, func(l purchaseLine) bool { return period.KeyOf(l.Date) == month }),
			func(l purchaseLine) string { return l.SubClass },
			func(s sums, l purchaseLine) sums {
				s.money += l.Money
				s.weight += l.Weight
				return s
			})
	}
	curr := monthSums(current)
	prev := monthSums(previous)

	var savings float64
	for sc, c := range curr {
		pr, ok := prev[sc]
		if !ok {
			continue
		}
		currAvg := dataset.Ratio(c.money, c.weight)
		prevAvg := dataset.Ratio(pr.money, pr.weight)
		savings += (prevAvg - currAvg) * c.weight
	}
	return savings, nil
}

// OutstandingRow is the open purchase backlog of one material sub-class.
// AvgCost is the implied outstanding unit cost, value over weight.
type OutstandingRow struct {
	SubClass string  `json:"subClass"`
	Money    float64 `json:"money"`
	Weight   float64 `json:"weight"`
	AvgCost  float64 `json:"avgCost"`
}

// OutstandingPurchasesBySubClass groups the outstanding value and weight
// of non-fulfilled purchase lines by material sub-class.
func (e *Engine) OutstandingPurchasesBySubClass(p Params) ([]OutstandingRow, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	open := dataset.Filter(e.purchaseLines(p, win), purchaseLine.open)

	acc := dataset.GroupReduce(open,
		func(l purchaseLine) string { return l.SubClass },
		func(s OutstandingRow, l purchaseLine) OutstandingRow {
			s.Money += l.OutstandingMoney
			s.Weight += l.OutstandingWeight
			return s
		})

	rows := make([]OutstandingRow, 0, len(acc))
	for _, sc := range dataset.SortedKeys(acc) {
		row := acc[sc]
		row.SubClass = sc
		row.AvgCost = dataset.Ratio(row.Money, row.Weight)
		rows = append(rows, row)
	}
	return rows, nil
}

// ProductionCostRow is produced quantity and cost for one month.
type ProductionCostRow struct {
	Month    time.Time `json:"month"`
	Qty      float64   `json:"qty"`
	Cost     float64   `json:"cost"`
	UnitCost float64   `json:"unitCost"`
}

// ProductionCosts groups executed production results by calendar month
// inside the window: total quantity, total cost (quantity × unit cost),
// and the implied average unit cost. Cancelled results are skipped.
func (e *Engine) ProductionCosts(p Params) ([]ProductionCostRow, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	results := dataset.Filter(e.snap.ProductionResults, func(r source.ProductionResult) bool {
		return r.Status != source.StatusCancelled && win.Contains(r.Date)
	})

	type sums struct{ qty, cost float64 }
	acc := dataset.GroupReduce(results,
		func(r source.ProductionResult) period.MonthKey { return period.KeyOf(r.Date) },
		func(s sums, r source.ProductionResult) sums {
			s.qty += r.Qty
			s.cost += r.Qty * r.UnitCost
			return s
		})

	months := make([]period.MonthKey, 0, len(acc))
	for m := range acc {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]ProductionCostRow, 0, len(months))
	for _, m := range months {
		s := acc[m]
		rows = append(rows, ProductionCostRow{
			Month:    m.Time(),
			Qty:      s.qty,
			Cost:     s.cost,
			UnitCost: dataset.Ratio(s.cost, s.qty),
		})
	}
	return rows, nil
}
