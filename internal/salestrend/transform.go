package salestrend

import (
	"time"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/normalize"
	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

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

// deliveryDate resolves the effective delivery date of a line: the line's
// own date, falling back to the header's. The zero time means neither side
// carries one.
func deliveryDate(line source.SalesOrderLine, order source.SalesOrder) time.Time {
	if !line.DeliveryDate.IsZero() {
		return line.DeliveryDate
	}
	return order.DeliveryDate
}

// orderLines joins order lines to their headers and the product master.
// Cancelled orders and orphan lines are dropped. When win is non-nil,
// lines are filtered on the effective delivery date, and lines with no
// date at all are excluded.
func (e *Engine) orderLines(classes []string, win *period.Window, filter taxonomy.AgentFilter) []orderLine {
	orders := dataset.Index(
		dataset.Filter(e.snap.SalesOrders, func(o source.SalesOrder) bool {
			if o.Status == source.StatusCancelled {
				return false
			}
			if filter.Restricted() && !filter.Keep(o.AgentRef) {
				return false
			}
			return true
		}),
		func(o source.SalesOrder) string { return o.ID })

	products := e.snap.ProductIndex()
	clients := e.snap.ClientNames()

	var out []orderLine
	for _, line := range e.snap.SalesOrderLines {
		order, ok := orders[line.OrderID]
		if !ok {
			continue
		}
		delivery := deliveryDate(line, order)
		if win != nil {
			if delivery.IsZero() || !win.Contains(delivery) {
				continue
			}
		}
		if !inSet(classes, line.ClassCode) {
			continue
		}

		factor := products[line.ProductRef].WeightFactor
		money := func(qty float64) float64 {
			return normalize.Money(qty*line.UnitPrice, order.CurrencyFlag, order.ExchangeRate)
		}
		outstanding := line.Outstanding
		if line.Fulfillment == source.FulfillmentFulfilled {
			outstanding = 0
		}

		out = append(out, orderLine{
			OrderID:           order.ID,
			CreatedAt:         order.CreatedAt,
			DeliveryDate:      delivery,
			ClientRef:         order.ClientRef,
			ClientName:        clients[order.ClientRef],
			AgentRef:          order.AgentRef,
			ProductRef:        line.ProductRef,
			ClassCode:         line.ClassCode,
			Fulfillment:       line.Fulfillment,
			Qty:               line.Qty,
			Outstanding:       outstanding,
			UnitPrice:         line.UnitPrice,
			Money:             money(line.Qty),
			Weight:            normalize.WeightRaw(line.Qty, factor),
			OutstandingMoney:  money(outstanding),
			OutstandingWeight: normalize.WeightRaw(outstanding, factor),
		})
	}
	return out
}

// windowedLines returns the order lines for the params window.
func (e *Engine) windowedLines(p Params) ([]orderLine, error) {
	win, err := e.window(p)
	if err != nil {
		return nil, err
	}
	return e.orderLines(p.Classes, &win, e.agentFilter(p)), nil
}

// backlogLines returns open lines over a lookback window anchored at the
// params base month, independent of p.Months.
func (e *Engine) backlogLines(p Params, lookbackMonths int) ([]orderLine, error) {
	win, err := period.MonthWindow(p.Month, p.Year, lookbackMonths)
	if err != nil {
		return nil, err
	}
	lines := e.orderLines(p.Classes, &win, e.agentFilter(p))
	return dataset.Filter(lines, orderLine.open), nil
}
