package purchasing

import (
	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/normalize"
	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

func inSet(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func orDefault(set, fallback []string) []string {
	if len(set) == 0 {
		return fallback
	}
	return set
}

// purchaseLines joins purchase-order lines to their headers and the
// product master, restricted to the raw-material taxonomy and the window.
// Cancelled orders and orphan lines are dropped; the line delivery date
// falls back to the header's.
func (e *Engine) purchaseLines(p Params, win period.Window) []purchaseLine {
	orders := dataset.Index(
		dataset.Filter(e.snap.PurchaseOrders, func(o source.PurchaseOrder) bool {
			return o.Status != source.StatusCancelled
		}),
		func(o source.PurchaseOrder) string { return o.ID })

	classes := orDefault(p.Classes, taxonomy.RawMaterialClasses)
	subClasses := orDefault(p.SubClasses, taxonomy.RawMaterialSubClasses)

	products := e.snap.ProductIndex()
	suppliers := e.snap.SupplierNames()

	var out []purchaseLine
	for _, line := range e.snap.PurchaseOrderLines {
		order, ok := orders[line.OrderID]
		if !ok {
			continue
		}
		delivery := line.DeliveryDate
		if delivery.IsZero() {
			delivery = order.DeliveryDate
		}
		if delivery.IsZero() || !win.Contains(delivery) {
			continue
		}
		if !inSet(classes, line.ClassCode) {
			continue
		}
		product := products[line.ProductRef]
		if !inSet(subClasses, product.SubClass) {
			continue
		}
		if len(p.BusinessUnits) > 0 &&
			!inSet(p.BusinessUnits, taxonomy.RawMaterialBusinessUnit(product.SubSubClass)) {
			continue
		}

		factor := normalize.SafeFactor(product.WeightFactor)
		money := func(qty float64) float64 {
			return normalize.Money(qty*line.UnitPrice, order.CurrencyFlag, order.ExchangeRate)
		}
		weight := func(qty float64) float64 {
			return normalize.Weight(qty, line.Unit, factor)
		}
		outstanding := line.Outstanding
		if line.Fulfillment == source.FulfillmentFulfilled {
			outstanding = 0
		}

		out = append(out, purchaseLine{
			Date:              delivery,
			OrderID:           order.ID,
			SupplierRef:       line.SupplierRef,
			SupplierName:      suppliers[line.SupplierRef],
			ProductRef:        line.ProductRef,
			ClassCode:         line.ClassCode,
			SubClass:          product.SubClass,
			SubSubClass:       product.SubSubClass,
			Fulfillment:       line.Fulfillment,
			Money:             money(line.Qty),
			Weight:            weight(line.Qty),
			OutstandingMoney:  money(outstanding),
			OutstandingWeight: weight(outstanding),
		})
	}
	return out
}
