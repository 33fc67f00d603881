package stockval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laminex-bi/laminex-bi/internal/source"
)

func fixtureSnapshot() *source.Snapshot {
	return &source.Snapshot{
		StockPositions: []source.StockPosition{
			{ProductRef: "R-PS-A", Location: "ALM1", Qty: 100, AvgCost: 10},
			{ProductRef: "R-PS-B", Location: "ALM1", Qty: 4, AvgCost: 300}, // sacks of 25 kg
			{ProductRef: "R-PE-A", Location: "ALM2", Qty: 50, AvgCost: 8},
			{ProductRef: "F-01", Location: "ALM1", Qty: 20, AvgCost: 40},
			// No master row: dropped from the join.
			{ProductRef: "GHOST", Location: "ALM1", Qty: 5, AvgCost: 1},
		},
		Products: []source.Product{
			{Ref: "R-PS-A", ClassCode: "RESINA", SubClass: "PS", SubSubClass: "RIGIDO",
				Unit: "KG", WeightFactor: 0},
			{Ref: "R-PS-B", ClassCode: "RESINA", SubClass: "PS", SubSubClass: "RIGIDO",
				Unit: "SACO", WeightFactor: 25},
			{Ref: "R-PE-A", ClassCode: "RESINA", SubClass: "PE", SubSubClass: "RIGIDO",
				Unit: "KG", WeightFactor: 1},
			{Ref: "F-01", Description: "LAMINA PS", ClassCode: "PS", SubClass: "CAL-40",
				Unit: "PZA", WeightFactor: 2},
		},
	}
}

func TestStockValuationRawMaterials(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.StockValuation(Params{Mode: RawMaterials, Classes: []string{"RESINA"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byClass := map[string]ValuationRow{}
	for _, r := range rows {
		byClass[r.SubClass] = r
	}

	ps := byClass["PS"]
	// 100 kg (zero factor counts as 1) + 4 sacks × 25 kg.
	require.InDelta(t, 200.0, ps.Weight, 1e-9)
	// 100×10 + 4×300.
	require.InDelta(t, 2200.0, ps.Value, 1e-9)
	require.InDelta(t, 10.0, ps.MinCost, 1e-9)
	require.InDelta(t, 300.0, ps.MaxCost, 1e-9)
	require.InDelta(t, 11.0, ps.AvgCost, 1e-9)

	pe := byClass["PE"]
	require.InDelta(t, 50.0, pe.Weight, 1e-9)
	require.InDelta(t, 8.0, pe.AvgCost, 1e-9)
}

func TestStockValuationFinishedGoods(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.StockValuation(Params{Mode: FinishedGoods, Classes: []string{"PS"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "CAL-40", rows[0].SubClass)
	// 20 pieces × factor 2.
	require.InDelta(t, 40.0, rows[0].Weight, 1e-9)
	require.InDelta(t, 800.0, rows[0].Value, 1e-9)
}

func TestStockValuationZeroWeightAvgCost(t *testing.T) {
	snap := &source.Snapshot{
		StockPositions: []source.StockPosition{
			{ProductRef: "F-02", Location: "ALM1", Qty: 3, AvgCost: 5},
		},
		Products: []source.Product{
			// Finished-goods mode keeps the zero factor as is.
			{Ref: "F-02", ClassCode: "PS", SubClass: "CAL-20", Unit: "PZA", WeightFactor: 0},
		},
	}
	e := NewEngine(snap, nil)
	rows, err := e.StockValuation(Params{Mode: FinishedGoods})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Zero(t, rows[0].Weight)
	require.Zero(t, rows[0].AvgCost)
	require.InDelta(t, 15.0, rows[0].Value, 1e-9)
}

func TestStockValuationBusinessUnitFilter(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.StockValuation(Params{Mode: RawMaterials, BusinessUnits: []string{"PET"}})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestStockDetailSorted(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.StockDetail(Params{Mode: RawMaterials, Classes: []string{"RESINA"}})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "R-PE-A", rows[0].ProductRef)
	require.Equal(t, "R-PS-A", rows[1].ProductRef)
	require.Equal(t, "R-PS-B", rows[2].ProductRef)
	require.Equal(t, "RÍGIDOS", rows[0].BusinessUnit)
}

func TestStockLocationFilter(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil)
	rows, err := e.StockDetail(Params{Mode: RawMaterials, Classes: []string{"RESINA"},
		Locations: []string{"ALM2"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "R-PE-A", rows[0].ProductRef)
}
