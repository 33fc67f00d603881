package purchasing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/laminex-bi/laminex-bi/internal/source"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func fixtureSnapshot() *source.Snapshot {
	return &source.Snapshot{
		PurchaseOrders: []source.PurchaseOrder{
			{ID: "C1", DeliveryDate: date(time.February, 10), Status: "Open", CurrencyFlag: 1},
			{ID: "C2", DeliveryDate: date(time.March, 12), Status: "Open", CurrencyFlag: 1},
			{ID: "C3", DeliveryDate: date(time.March, 20), Status: source.StatusCancelled, CurrencyFlag: 1},
		},
		PurchaseOrderLines: []source.PurchaseOrderLine{
			// Last month: 100 kg of PS resin at 10/kg.
			{OrderID: "C1", SupplierRef: 1, ProductRef: "R-PS", ClassCode: "RESINA",
				Qty: 100, UnitPrice: 10, Unit: "KG", Fulfillment: source.FulfillmentFulfilled},
			// This month: 100 kg at 8/kg, 40 kg still outstanding.
			{OrderID: "C2", SupplierRef: 1, ProductRef: "R-PS", ClassCode: "RESINA",
				Qty: 100, UnitPrice: 8, Unit: "KG", Fulfillment: source.FulfillmentPartial,
				Outstanding: 40},
			// Different supplier and sub-class, sold by sack of 25 kg at
			// 50/sack: 2/kg.
			{OrderID: "C2", SupplierRef: 2, ProductRef: "R-PE", ClassCode: "RESINA",
				Qty: 8, UnitPrice: 50, Unit: "SACO", Fulfillment: source.FulfillmentFulfilled},
			// Cancelled order: never counted.
			{OrderID: "C3", SupplierRef: 1, ProductRef: "R-PS", ClassCode: "RESINA",
				Qty: 999, UnitPrice: 1, Unit: "KG", Fulfillment: source.FulfillmentOpen},
			// Non-raw-material class: filtered by default.
			{OrderID: "C2", SupplierRef: 1, ProductRef: "M-01", ClassCode: "MAQUINARIA",
				Qty: 1, UnitPrice: 5000, Unit: "PZA", Fulfillment: source.FulfillmentOpen},
		},
		Products: []source.Product{
			{Ref: "R-PS", ClassCode: "RESINA", SubClass: "PS", SubSubClass: "RIGIDO",
				Unit: "KG", WeightFactor: 0}, // zero factor maps to 1
			{Ref: "R-PE", ClassCode: "RESINA", SubClass: "PE", SubSubClass: "RIGIDO",
				Unit: "SACO", WeightFactor: 25},
			{Ref: "M-01", ClassCode: "MAQUINARIA", SubClass: "OTRA", Unit: "PZA"},
		},
		Suppliers: []source.Supplier{{Ref: 1, Name: "POLIMEROS SA"}, {Ref: 2, Name: "RESIMEX"}},
	}
}

func params() Params {
	return Params{Month: 3, Year: 2026, Months: 2}
}

func TestAveragePriceBySubClassAndSupplier(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	pivot, err := e.AveragePriceBySubClassAndSupplier(params())
	require.NoError(t, err)

	// POLIMEROS: (100×10 + 100×8) / 200 kg = 9/kg of PS.
	require.InDelta(t, 9.0, pivot.Cell("POLIMEROS SA", "PS"), 1e-9)
	// RESIMEX: 8 sacks × 50 over 8×25 kg = 2/kg of PE.
	require.InDelta(t, 2.0, pivot.Cell("RESIMEX", "PE"), 1e-9)
	require.Zero(t, pivot.Cell("RESIMEX", "PS"))
	require.ElementsMatch(t, []string{"PE", "PS"}, pivot.Cols)
}

func TestAveragePriceBySubClass(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.AveragePriceBySubClass(params())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byClass := map[string]SubClassPrice{}
	for _, r := range rows {
		byClass[r.SubClass] = r
	}
	require.InDelta(t, 9.0, byClass["PS"].AvgPrice, 1e-9)
	require.InDelta(t, 200.0, byClass["PS"].Weight, 1e-9)
	require.InDelta(t, 2.0, byClass["PE"].AvgPrice, 1e-9)
}

func TestPriceTimeseries(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	series, err := e.PriceTimeseries(params())
	require.NoError(t, err)

	byName := map[string][]float64{}
	for _, s := range series {
		for i := 1; i < len(s.Points); i++ {
			require.True(t, s.Points[i-1].Date.Before(s.Points[i].Date))
		}
		for _, p := range s.Points {
			byName[s.Name] = append(byName[s.Name], p.Value)
		}
	}
	require.Equal(t, []float64{10, 8}, byName["PS"])
	require.Equal(t, []float64{2}, byName["PE"])
}

func TestMonthOverMonthSavings(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	got, err := e.MonthOverMonthSavings(Params{Month: 3, Year: 2026})
	require.NoError(t, err)
	// PS: (10 − 8) × 100 kg = 200. PE has no February purchases, skipped.
	require.InDelta(t, 200.0, got, 1e-9)
}

func TestMonthOverMonthSavingsSingleMonth(t *testing.T) {
	snap := fixtureSnapshot()
	snap.PurchaseOrders = snap.PurchaseOrders[1:] // drop February's order
	e := NewEngine(snap, nil)
	got, err := e.MonthOverMonthSavings(Params{Month: 3, Year: 2026})
	require.ErrorIs(t, err, ErrNoComparableMonths)
	require.Zero(t, got)
}

func TestOutstandingPurchasesBySubClass(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.OutstandingPurchasesBySubClass(params())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "PS", rows[0].SubClass)
	// 40 kg outstanding at 8/kg.
	require.InDelta(t, 320.0, rows[0].Money, 1e-9)
	require.InDelta(t, 40.0, rows[0].Weight, 1e-9)
	require.InDelta(t, 8.0, rows[0].AvgCost, 1e-9)
}

func TestBusinessUnitFilter(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	p := params()
	p.BusinessUnits = []string{"PET"}
	rows, err := e.AveragePriceBySubClass(p)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestProductionCosts(t *testing.T) {
	snap := fixtureSnapshot()
	snap.ProductionResults = []source.ProductionResult{
		{OrderRef: "OP1", ProductRef: "F-01", Date: date(time.March, 3), Qty: 100, UnitCost: 2},
		{OrderRef: "OP2", ProductRef: "F-01", Date: date(time.March, 9), Qty: 50, UnitCost: 4},
		{OrderRef: "OP3", ProductRef: "F-01", Date: date(time.February, 1), Qty: 10, UnitCost: 1},
		{OrderRef: "OP4", ProductRef: "F-01", Date: date(time.March, 10), Qty: 99,
			UnitCost: 9, Status: source.StatusCancelled},
	}
	e := NewEngine(snap, nil)
	rows, err := e.ProductionCosts(params())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// February first, then March.
	require.InDelta(t, 10.0, rows[0].Qty, 1e-9)
	require.InDelta(t, 150.0, rows[1].Qty, 1e-9)
	require.InDelta(t, 400.0, rows[1].Cost, 1e-9)
	require.InDelta(t, 400.0/150.0, rows[1].UnitCost, 1e-9)
}
