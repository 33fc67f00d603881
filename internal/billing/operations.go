package billing

import (
	"sort"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// NetBilling returns gross invoice amount minus credits for the window, in
// the requested unit.
func (e *Engine) NetBilling(p Params, unit kpi.Unit) (float64, error) {
	if _, err := kpi.ParseUnit(string(unit)); err != nil {
		return 0, err
	}
	win, err := e.window(p)
	if err != nil {
		return 0, err
	}
	filter := e.agentFilter(p)
	bills := e.billedLines(p, win, filter)
	credits := e.creditLines(p, win, filter)

	if unit == kpi.UnitWeight {
		return dataset.Sum(bills, func(l billedLine) float64 { return l.Weight }) -
			dataset.Sum(credits, func(l creditLine) float64 { return l.Weight }), nil
	}
	return dataset.Sum(bills, func(l billedLine) float64 { return l.Money }) -
		dataset.Sum(credits, func(l creditLine) float64 { return l.Money }), nil
}

// DayBilling restricts net billing to a single calendar day, used for
// day-over-day deltas.
func (e *Engine) DayBilling(day time.Time, classes []string, agents []int, unit kpi.Unit) (float64, error) {
	if _, err := kpi.ParseUnit(string(unit)); err != nil {
		return 0, err
	}
	p := Params{
		Month:   int(day.Month()),
		Year:    day.Year(),
		Months:  1,
		Classes: classes,
		Agents:  agents,
	}
	win, err := e.window(p)
	if err != nil {
		return 0, err
	}
	filter := e.agentFilter(p)

	sameDay := func(t time.Time) bool {
		return t.Year() == day.Year() && t.YearDay() == day.YearDay()
	}
	bills := dataset.Filter(e.billedLines(p, win, filter),
		func(l billedLine) bool { return sameDay(l.Date) })
	credits := dataset.Filter(e.creditLines(p, win, filter),
		func(l creditLine) bool { return sameDay(l.Date) })

	if unit == kpi.UnitWeight {
		return dataset.Sum(bills, func(l billedLine) float64 { return l.Weight }) -
			dataset.Sum(credits, func(l creditLine) float64 { return l.Weight }), nil
	}
	return dataset.Sum(bills, func(l billedLine) float64 { return l.Money }) -
		dataset.Sum(credits, func(l creditLine) float64 { return l.Money }), nil
}

// AgentRow is net billing for one agent (optionally split per business
// unit). AvgPricePerKg is gross money over gross weight, 0 when there is
// no weight.
type AgentRow struct {
	AgentRef      int     `json:"agentRef"`
	AgentName     string  `json:"agentName"`
	BusinessUnit  string  `json:"businessUnit,omitempty"`
	Gross         float64 `json:"gross"`
	GrossWeight   float64 `json:"grossWeight"`
	Credit        float64 `json:"credit"`
	CreditWeight  float64 `json:"creditWeight"`
	Net           float64 `json:"net"`
	NetWeight     float64 `json:"netWeight"`
	AvgPricePerKg float64 `json:"avgPricePerKg"`
}

type agentGroup struct {
	agentRef int
	unit     string
}

// NetBillingByAgent groups net billing by agent, optionally per business
// unit. Deny-listed agents never appear.
func (e *Engine) NetBillingByAgent(p Params, withBusinessUnit bool) ([]AgentRow, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	filter := e.agentFilter(p)
	bills := dataset.Filter(e.billedLines(p, win, filter),
		func(l billedLine) bool { return filter.Keep(l.AgentRef) })
	credits := dataset.Filter(e.creditLines(p, win, filter),
		func(l creditLine) bool { return filter.Keep(l.AgentRef) })

	groupOf := func(agentRef int, class string) agentGroup {
		g := agentGroup{agentRef: agentRef}
		if withBusinessUnit {
			g.unit = taxonomy.BusinessUnit(class)
		}
		return g
	}

	type sums struct{ gross, grossKG, credit, creditKG float64 }
	acc := dataset.GroupReduce(bills,
		func(l billedLine) agentGroup { return groupOf(l.AgentRef, l.ClassCode) },
		func(s sums, l billedLine) sums {
			s.gross += l.Money
			s.grossKG += l.Weight
			return s
		})
	// Credit-only agents still get a row; billing-side sums stay 0.
	for g, s := range dataset.GroupReduce(credits,
		func(l creditLine) agentGroup { return groupOf(l.AgentRef, l.ClassCode) },
		func(s sums, l creditLine) sums {
			s.credit += l.Money
			s.creditKG += l.Weight
			return s
		}) {
		merged := acc[g]
		merged.credit = s.credit
		merged.creditKG = s.creditKG
		acc[g] = merged
	}

	names := e.snap.AgentNames()
	rows := make([]AgentRow, 0, len(acc))
	for g, s := range acc {
		rows = append(rows, AgentRow{
			AgentRef:      g.agentRef,
			AgentName:     names[g.agentRef],
			BusinessUnit:  g.unit,
			Gross:         s.gross,
			GrossWeight:   s.grossKG,
			Credit:        s.credit,
			CreditWeight:  s.creditKG,
			Net:           s.gross - s.credit,
			NetWeight:     s.grossKG - s.creditKG,
			AvgPricePerKg: dataset.Ratio(s.gross, s.grossKG),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AgentName != rows[j].AgentName {
			return rows[i].AgentName < rows[j].AgentName
		}
		return rows[i].BusinessUnit < rows[j].BusinessUnit
	})
	return rows, nil
}

// GroupRow is net billing for one value of an arbitrary grouping dimension.
type GroupRow struct {
	Key           string  `json:"key"`
	Gross         float64 `json:"gross"`
	GrossWeight   float64 `json:"grossWeight"`
	Credit        float64 `json:"credit"`
	CreditWeight  float64 `json:"creditWeight"`
	Net           float64 `json:"net"`
	NetWeight     float64 `json:"netWeight"`
	AvgPricePerKg float64 `json:"avgPricePerKg"`
}

// NetBillingByColumn groups net billing by a typed grouping dimension.
func (e *Engine) NetBillingByColumn(p Params, key kpi.GroupKey) ([]GroupRow, error) {
	if _, err := kpi.ParseGroupKey(string(key)); err != nil {
		return nil, err
	}
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	filter := e.agentFilter(p)
	bills := e.billedLines(p, win, filter)
	credits := e.creditLines(p, win, filter)
	if key == kpi.GroupByAgent {
		bills = dataset.Filter(bills, func(l billedLine) bool { return filter.Keep(l.AgentRef) })
		credits = dataset.Filter(credits, func(l creditLine) bool { return filter.Keep(l.AgentRef) })
	}

	agentNames := e.snap.AgentNames()
	billKey := func(l billedLine) string {
		if key == kpi.GroupByAgent {
			return agentNames[l.AgentRef]
		}
		return l.groupValue(key)
	}
	creditKey := func(l creditLine) string {
		if key == kpi.GroupByAgent {
			return agentNames[l.AgentRef]
		}
		return l.groupValue(key)
	}

	type sums struct{ gross, grossKG, credit, creditKG float64 }
	acc := dataset.GroupReduce(bills, billKey, func(s sums, l billedLine) sums {
		s.gross += l.Money
		s.grossKG += l.Weight
		return s
	})
	for k, s := range dataset.GroupReduce(credits, creditKey, func(s sums, l creditLine) sums {
		s.credit += l.Money
		s.creditKG += l.Weight
		return s
	}) {
		merged := acc[k]
		merged.credit = s.credit
		merged.creditKG = s.creditKG
		acc[k] = merged
	}

	rows := make([]GroupRow, 0, len(acc))
	for _, k := range dataset.SortedKeys(acc) {
		s := acc[k]
		rows = append(rows, GroupRow{
			Key:           k,
			Gross:         s.gross,
			GrossWeight:   s.grossKG,
			Credit:        s.credit,
			CreditWeight:  s.creditKG,
			Net:           s.gross - s.credit,
			NetWeight:     s.grossKG - s.creditKG,
			AvgPricePerKg: dataset.Ratio(s.gross, s.grossKG),
		})
	}
	return rows, nil
}

// TimePoint is daily net billing in both units.
type TimePoint struct {
	Date   time.Time `json:"date"`
	Money  float64   `json:"money"`
	Weight float64   `json:"weight"`
}

// NetBillingTimeseries returns daily net billing across the window,
// optionally as a running total.
func (e *Engine) NetBillingTimeseries(p Params, cumulative bool) ([]TimePoint, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	filter := e.agentFilter(p)
	bills := e.billedLines(p, win, filter)
	credits := e.creditLines(p, win, filter)

	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	type sums struct{ money, weight float64 }
	acc := dataset.GroupReduce(bills,
		func(l billedLine) time.Time { return day(l.Date) },
		func(s sums, l billedLine) sums {
			s.money += l.Money
			s.weight += l.Weight
			return s
		})
	for _, l := range credits {
		s := acc[day(l.Date)]
		s.money -= l.Money
		s.weight -= l.Weight
		acc[day(l.Date)] = s
	}

	days := make([]time.Time, 0, len(acc))
	for d := range acc {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]TimePoint, 0, len(days))
	var runMoney, runWeight float64
	for _, d := range days {
		s := acc[d]
		if cumulative {
			runMoney += s.money
			runWeight += s.weight
			points = append(points, TimePoint{Date: d, Money: runMoney, Weight: runWeight})
			continue
		}
		points = append(points, TimePoint{Date: d, Money: s.money, Weight: s.weight})
	}
	return points, nil
}

// ByBusinessUnitAndClass pivots net billing into business-unit rows and
// class-code columns, filled with 0 where a unit never billed a class.
func (e *Engine) ByBusinessUnitAndClass(p Params, unit kpi.Unit) (kpi.Pivot, error) {
	if _, err := kpi.ParseUnit(string(unit)); err != nil {
		return kpi.Pivot{}, err
	}
	win, err := e.window(p)
	if err != nil {
		return kpi.Pivot{}, err
	}
	filter := e.agentFilter(p)
	bills := e.billedLines(p, win, filter)
	credits := e.creditLines(p, win, filter)

	billVal := func(l billedLine) float64 { return l.Money }
	creditVal := func(l creditLine) float64 { return l.Money }
	if unit == kpi.UnitWeight {
		billVal = func(l billedLine) float64 { return l.Weight }
		creditVal = func(l creditLine) float64 { return l.Weight }
	}

	cells := dataset.Pivot(bills,
		func(l billedLine) string { return taxonomy.BusinessUnit(l.ClassCode) },
		func(l billedLine) string { return l.ClassCode },
		billVal)
	for _, l := range credits {
		bu := taxonomy.BusinessUnit(l.ClassCode)
		if cells[bu] == nil {
			cells[bu] = make(map[string]float64)
		}
		cells[bu][l.ClassCode] -= creditVal(l)
	}

	colSet := make(map[string]struct{})
	for _, cols := range cells {
		for c := range cols {
			colSet[c] = struct{}{}
		}
	}
	return kpi.Pivot{
		RowLabel: "businessUnit",
		Rows:     dataset.SortedKeys(cells),
		Cols:     dataset.SortedKeys(colSet),
		Cells:    cells,
	}, nil
}

// BreakdownRow splits one group's billing into gross, net, advance
// applications, and returns/discounts.
type BreakdownRow struct {
	Key              string  `json:"key"`
	Net              float64 `json:"net"`
	NetWeight        float64 `json:"netWeight"`
	Gross            float64 `json:"gross"`
	GrossWeight      float64 `json:"grossWeight"`
	AvgPricePerKg    float64 `json:"avgPricePerKg"`
	AdvancesApplied  float64 `json:"advancesApplied"`
	ReturnsDiscounts float64 `json:"returnsDiscounts"`
	ReturnWeight     float64 `json:"returnWeight"`
}

// Breakdown decomposes net billing per group value: advance applications
// are split out of the credit total, the remainder is returns plus
// discounts. Groups where every metric is 0 are dropped.
func (e *Engine) Breakdown(p Params, key kpi.GroupKey) ([]BreakdownRow, error) {
	grouped, err := e.NetBillingByColumn(p, key)
	if err != nil {
		return nil, err
	}
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	filter := e.agentFilter(p)
	advances := dataset.Filter(e.creditLines(p, win, filter),
		func(l creditLine) bool { return l.Kind == CreditAdvance })

	agentNames := e.snap.AgentNames()
	advanceByGroup := dataset.GroupSum(advances, func(l creditLine) string {
		if key == kpi.GroupByAgent {
			return agentNames[l.AgentRef]
		}
		return l.groupValue(key)
	}, func(l creditLine) float64 { return l.Money })

	rows := make([]BreakdownRow, 0, len(grouped))
	for _, g := range grouped {
		advance := advanceByGroup[g.Key]
		row := BreakdownRow{
			Key:              g.Key,
			Net:              g.Net,
			NetWeight:        g.NetWeight,
			Gross:            g.Gross,
			GrossWeight:      g.GrossWeight,
			AvgPricePerKg:    g.AvgPricePerKg,
			AdvancesApplied:  advance,
			ReturnsDiscounts: g.Credit - advance,
			ReturnWeight:     g.CreditWeight,
		}
		if row.Net == 0 && row.Gross == 0 && row.AdvancesApplied == 0 &&
			row.ReturnsDiscounts == 0 && row.NetWeight == 0 {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}
