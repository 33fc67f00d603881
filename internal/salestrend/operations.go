package salestrend

import (
	"sort"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// SalesOrdersAmount sums ordered value over the window in the requested
// unit, excluding cancelled orders.
func (e *Engine) SalesOrdersAmount(p Params, unit kpi.Unit) (float64, error) {
	if _, err := kpi.ParseUnit(string(unit)); err != nil {
		return 0, err
	}
	lines, err := e.windowedLines(p)
	if err != nil {
		return 0, err
	}
	if unit == kpi.UnitWeight {
		return dataset.Sum(lines, func(l orderLine) float64 { return l.Weight }), nil
	}
	return dataset.Sum(lines, func(l orderLine) float64 { return l.Money }), nil
}

// ToBeSuppliedAmount sums the outstanding value on open lines, looking
// back lookbackMonths from the base month regardless of p.Months. The
// lookback captures backlog accumulated before the reporting month.
func (e *Engine) ToBeSuppliedAmount(p Params, unit kpi.Unit, lookbackMonths int) (float64, error) {
	if _, err := kpi.ParseUnit(string(unit)); err != nil {
		return 0, err
	}
	open, err := e.backlogLines(p, lookbackMonths)
	if err != nil {
		return 0, err
	}
	if unit == kpi.UnitWeight {
		return dataset.Sum(open, func(l orderLine) float64 { return l.OutstandingWeight }), nil
	}
	return dataset.Sum(open, func(l orderLine) float64 { return l.OutstandingMoney }), nil
}

// SuppliedPercentage is 1 − toBeSupplied/totalOrders over a one-month
// window, and 0 when nothing was ordered.
func (e *Engine) SuppliedPercentage(p Params, unit kpi.Unit) (float64, error) {
	month := p
	month.Months = 1
	total, err := e.SalesOrdersAmount(month, unit)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	open, err := e.ToBeSuppliedAmount(p, unit, 1)
	if err != nil {
		return 0, err
	}
	return 1 - open/total, nil
}

// TrendRow combines an agent's outstanding order backlog with their
// recent billing into a forward-looking trend value.
type TrendRow struct {
	AgentRef          int     `json:"agentRef"`
	AgentName         string  `json:"agentName"`
	BusinessUnit      string  `json:"businessUnit,omitempty"`
	Outstanding       float64 `json:"outstanding"`
	OutstandingWeight float64 `json:"outstandingWeight"`
	NetBilling        float64 `json:"netBilling"`
	NetBillingWeight  float64 `json:"netBillingWeight"`
	Trend             float64 `json:"trend"`
	TrendWeight       float64 `json:"trendWeight"`
}

type agentGroup struct {
	agentRef int
	unit     string
}

// TrendByAgent joins six months of outstanding orders with one month of
// net billing per agent, keeping only agents with a positive trend.
func (e *Engine) TrendByAgent(p Params, withBusinessUnit bool) ([]TrendRow, error) {
	open, err := e.backlogLines(p, TrendLookbackMonths)
	if err != nil {
		return nil, err
	}
	filter := e.agentFilter(p)
	open = dataset.Filter(open, func(l orderLine) bool { return filter.Keep(l.AgentRef) })

	month := p
	month.Months = 1
	billed, err := e.billing.NetBillingByAgent(month.billingParams(), withBusinessUnit)
	if err != nil {
		return nil, err
	}

	groupOf := func(ref int, class string) agentGroup {
		if withBusinessUnit {
			return agentGroup{agentRef: ref, unit: taxonomy.BusinessUnit(class)}
		}
		return agentGroup{agentRef: ref}
	}

	type sums struct{ money, weight float64 }
	acc := dataset.GroupReduce(open,
		func(l orderLine) agentGroup { return groupOf(l.AgentRef, l.ClassCode) },
		func(s sums, l orderLine) sums {
			s.money += l.OutstandingMoney
			s.weight += l.OutstandingWeight
			return s
		})

	rows := make(map[agentGroup]TrendRow, len(acc))
	for g, s := range acc {
		rows[g] = TrendRow{
			AgentRef:          g.agentRef,
			BusinessUnit:      g.unit,
			Outstanding:       s.money,
			OutstandingWeight: s.weight,
		}
	}
	for _, b := range billed {
		g := agentGroup{agentRef: b.AgentRef, unit: b.BusinessUnit}
		row := rows[g]
		row.AgentRef = g.agentRef
		row.BusinessUnit = g.unit
		row.NetBilling = b.Net
		row.NetBillingWeight = b.NetWeight
		rows[g] = row
	}

	agentNames := e.snap.AgentNames()
	out := make([]TrendRow, 0, len(rows))
	for _, row := range rows {
		row.Trend = row.Outstanding + row.NetBilling
		row.TrendWeight = row.OutstandingWeight + row.NetBillingWeight
		if row.Trend <= 0 {
			continue
		}
		row.AgentName = agentNames[row.AgentRef]
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgentName != out[j].AgentName {
			return out[i].AgentName < out[j].AgentName
		}
		return out[i].BusinessUnit < out[j].BusinessUnit
	})
	return out, nil
}

// ColumnRow joins ordered, outstanding, and billed amounts for one group
// value.
type ColumnRow struct {
	Key               string  `json:"key"`
	Ordered           float64 `json:"ordered"`
	OrderedWeight     float64 `json:"orderedWeight"`
	Outstanding       float64 `json:"outstanding"`
	OutstandingWeight float64 `json:"outstandingWeight"`
	NetBilling        float64 `json:"netBilling"`
	NetBillingWeight  float64 `json:"netBillingWeight"`
	Trend             float64 `json:"trend"`
}

// SOAndTrendByColumn is the caller-keyed variant of TrendByAgent, adding
// the windowed ordered totals per group.
func (e *Engine) SOAndTrendByColumn(p Params, key kpi.GroupKey) ([]ColumnRow, error) {
	if _, err := kpi.ParseGroupKey(string(key)); err != nil {
		return nil, err
	}
	lines, err := e.windowedLines(p)
	if err != nil {
		return nil, err
	}
	open, err := e.backlogLines(p, TrendLookbackMonths)
	if err != nil {
		return nil, err
	}
	month := p
	month.Months = 1
	billed, err := e.billing.NetBillingByColumn(month.billingParams(), key)
	if err != nil {
		return nil, err
	}

	agentNames := e.snap.AgentNames()
	groupKey := func(l orderLine) string {
		if key == kpi.GroupByAgent {
			return agentNames[l.AgentRef]
		}
		return l.groupValue(key)
	}
	if key == kpi.GroupByAgent {
		filter := e.agentFilter(p)
		keep := func(l orderLine) bool { return filter.Keep(l.AgentRef) }
		lines = dataset.Filter(lines, keep)
		open = dataset.Filter(open, keep)
	}

	acc := map[string]ColumnRow{}
	for _, l := range lines {
		row := acc[groupKey(l)]
		row.Ordered += l.Money
		row.OrderedWeight += l.Weight
		acc[groupKey(l)] = row
	}
	for _, l := range open {
		row := acc[groupKey(l)]
		row.Outstanding += l.OutstandingMoney
		row.OutstandingWeight += l.OutstandingWeight
		acc[groupKey(l)] = row
	}
	for _, b := range billed {
		row := acc[b.Key]
		row.NetBilling = b.Net
		row.NetBillingWeight = b.NetWeight
		acc[b.Key] = row
	}

	rows := make([]ColumnRow, 0, len(acc))
	for _, k := range dataset.SortedKeys(acc) {
		row := acc[k]
		row.Key = k
		row.Trend = row.Outstanding + row.NetBilling
		rows = append(rows, row)
	}
	return rows, nil
}

// TimePoint is the ordered value delivered on one day.
type TimePoint struct {
	Date   time.Time `json:"date"`
	Money  float64   `json:"money"`
	Weight float64   `json:"weight"`
}

// Timeseries returns daily ordered value across the window, bucketed on
// delivery date, optionally as a running total.
func (e *Engine) Timeseries(p Params, cumulative bool) ([]TimePoint, error) {
	lines, err := e.windowedLines(p)
	if err != nil {
		return nil, err
	}

	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	type sums struct{ money, weight float64 }
	acc := dataset.GroupReduce(lines,
		func(l orderLine) time.Time { return day(l.DeliveryDate) },
		func(s sums, l orderLine) sums {
			s.money += l.Money
			s.weight += l.Weight
			return s
		})

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

// AgentOrderRow is ordered and outstanding value for one agent.
type AgentOrderRow struct {
	AgentRef          int     `json:"agentRef"`
	AgentName         string  `json:"agentName"`
	BusinessUnit      string  `json:"businessUnit,omitempty"`
	Ordered           float64 `json:"ordered"`
	OrderedWeight     float64 `json:"orderedWeight"`
	Outstanding       float64 `json:"outstanding"`
	OutstandingWeight float64 `json:"outstandingWeight"`
}

// OrdersByAgent groups windowed orders by agent, optionally per business
// unit. Deny-listed agents never appear.
func (e *Engine) OrdersByAgent(p Params, withBusinessUnit bool) ([]AgentOrderRow, error) {
	lines, err := e.windowedLines(p)
	if err != nil {
		return nil, err
	}
	filter := e.agentFilter(p)
	lines = dataset.Filter(lines, func(l orderLine) bool { return filter.Keep(l.AgentRef) })

	groupOf := func(l orderLine) agentGroup {
		if withBusinessUnit {
			return agentGroup{agentRef: l.AgentRef, unit: taxonomy.BusinessUnit(l.ClassCode)}
		}
		return agentGroup{agentRef: l.AgentRef}
	}
	acc := dataset.GroupReduce(lines, groupOf, func(r AgentOrderRow, l orderLine) AgentOrderRow {
		r.Ordered += l.Money
		r.OrderedWeight += l.Weight
		r.Outstanding += l.OutstandingMoney
		r.OutstandingWeight += l.OutstandingWeight
		return r
	})

	agentNames := e.snap.AgentNames()
	rows := make([]AgentOrderRow, 0, len(acc))
	for g, row := range acc {
		row.AgentRef = g.agentRef
		row.AgentName = agentNames[g.agentRef]
		row.BusinessUnit = g.unit
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AgentName != rows[j].AgentName {
			return rows[i].AgentName < rows[j].AgentName
		}
		return rows[i].BusinessUnit < rows[j].BusinessUnit
	})
	return rows, nil
}

// OrderLineDetail is one order-book line for the drill-down table.
type OrderLineDetail struct {
	OrderID           string    `json:"orderId"`
	ClientName        string    `json:"clientName"`
	AgentName         string    `json:"agentName"`
	ProductRef        string    `json:"productRef"`
	ClassCode         string    `json:"classCode"`
	Fulfillment       string    `json:"fulfillment"`
	DeliveryDate      time.Time `json:"deliveryDate"`
	Qty               float64   `json:"qty"`
	Outstanding       float64   `json:"outstanding"`
	Money             float64   `json:"money"`
	Weight            float64   `json:"weight"`
	OutstandingMoney  float64   `json:"outstandingMoney"`
	OutstandingWeight float64   `json:"outstandingWeight"`
	PricePerKg        float64   `json:"pricePerKg"`
}

// OrderBook merges the windowed order lines with the full open backlog
// into one de-duplicated detail table, sorted open-first, then by
// delivery date.
func (e *Engine) OrderBook(p Params) ([]OrderLineDetail, error) {
	windowed, err := e.windowedLines(p)
	if err != nil {
		return nil, err
	}
	backlog, err := e.backlogLines(p, TrendLookbackMonths)
	if err != nil {
		return nil, err
	}

	type lineKey struct {
		orderID    string
		productRef string
	}
	seen := make(map[lineKey]struct{}, len(windowed))
	merged := make([]orderLine, 0, len(windowed)+len(backlog))
	for _, set := range [][]orderLine{windowed, backlog} {
		for _, l := range set {
			k := lineKey{orderID: l.OrderID, productRef: l.ProductRef}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, l)
		}
	}

	agentNames := e.snap.AgentNames()
	rows := make([]OrderLineDetail, 0, len(merged))
	for _, l := range merged {
		rows = append(rows, OrderLineDetail{
			OrderID:           l.OrderID,
			ClientName:        l.ClientName,
			AgentName:         agentNames[l.AgentRef],
			ProductRef:        l.ProductRef,
			ClassCode:         l.ClassCode,
			Fulfillment:       l.Fulfillment,
			DeliveryDate:      l.DeliveryDate,
			Qty:               l.Qty,
			Outstanding:       l.Outstanding,
			Money:             l.Money,
			Weight:            l.Weight,
			OutstandingMoney:  l.OutstandingMoney,
			OutstandingWeight: l.OutstandingWeight,
			PricePerKg:        dataset.Ratio(l.Money, l.Weight),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		li, lj := rows[i], rows[j]
		oi := li.Fulfillment != source.FulfillmentFulfilled
		oj := lj.Fulfillment != source.FulfillmentFulfilled
		if oi != oj {
			return oi
		}
		return li.DeliveryDate.Before(lj.DeliveryDate)
	})
	return rows, nil
}
