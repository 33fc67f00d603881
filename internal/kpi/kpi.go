// Package kpi carries the vocabulary shared by every aggregator: unit and
// group-key selectors, series/table result shapes, the input-error taxonomy,
// and the versioned result cache.
package kpi

import (
	"errors"
	"fmt"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/period"
)

// Unit selects whether an aggregate is expressed in reference currency or
// reference weight.
type Unit string

// Recognized units. The legacy dashboards call them MN (moneda nacional)
// and KG.
const (
	UnitMoney  Unit = "MN"
	UnitWeight Unit = "KG"
)

// ErrUnknownUnit rejects a unit selector outside {MN, KG}.
var ErrUnknownUnit = errors.New("kpi: unknown unit selector")

// ParseUnit validates a raw unit selector.
func ParseUnit(raw string) (Unit, error) {
	switch Unit(raw) {
	case UnitMoney, UnitWeight:
		return Unit(raw), nil
	case "":
		return UnitMoney, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
}

// GroupKey is a typed column selector for the generic group-by operations.
// Free-form column names are rejected at validation time.
type GroupKey string

// Recognized grouping dimensions.
const (
	GroupByClass        GroupKey = "class"
	GroupBySubClass     GroupKey = "sub_class"
	GroupByBusinessUnit GroupKey = "business_unit"
	GroupByClient       GroupKey = "client"
	GroupByAgent        GroupKey = "agent"
	GroupByProduct      GroupKey = "product"
)

// ErrUnknownGroupKey rejects a grouping column outside the typed set.
var ErrUnknownGroupKey = errors.New("kpi: unknown group key")

// ParseGroupKey validates a raw grouping selector.
func ParseGroupKey(raw string) (GroupKey, error) {
	switch GroupKey(raw) {
	case GroupByClass, GroupBySubClass, GroupByBusinessUnit, GroupByClient,
		GroupByAgent, GroupByProduct:
		return GroupKey(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroupKey, raw)
}

// Point is one dated value of a series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a named, date-ordered sequence of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Pivot is a rectangular rowKey x colKey table with 0-filled cells.
type Pivot struct {
	RowLabel string                        `json:"rowLabel"`
	Rows     []string                      `json:"rows"`
	Cols     []string                      `json:"cols"`
	Cells    map[string]map[string]float64 `json:"cells"`
}

// Cell returns the value at (row, col), 0 when absent.
func (p Pivot) Cell(row, col string) float64 {
	if cells, ok := p.Cells[row]; ok {
		return cells[col]
	}
	return 0
}

// IsInputError reports whether err belongs to the input-error taxonomy:
// rejected before computation and reported to the caller verbatim.
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnknownUnit) ||
		errors.Is(err, ErrUnknownGroupKey) ||
		errors.Is(err, period.ErrInvalidRange) ||
		errors.Is(err, period.ErrInvalidMonth)
}
