// Package dataset provides the relational primitives the aggregators are
// built on: keyed indexes for joins, grouped reductions, pivots, and
// weighted averages. Every function returns fresh maps or slices and never
// mutates its inputs, so a snapshot shared between requests stays intact.
package dataset

import (
	"cmp"
	"sort"
)

// Index builds a unique-key lookup over rows. Later rows win on key
// collision. Combined with a map lookup this is the left join used from
// fact tables toward dimension tables: a missing key yields the zero value
// and the caller decides the default.
func Index[R any, K comparable](rows []R, key func(R) K) map[K]R {
	index := make(map[K]R, len(rows))
	for _, row := range rows {
		index[key(row)] = row
	}
	return index
}

// IndexAll groups rows by key, preserving input order inside each group.
// This is the one-to-many side of a join (header -> lines).
func IndexAll[R any, K comparable](rows []R, key func(R) K) map[K][]R {
	index := make(map[K][]R)
	for _, row := range rows {
		k := key(row)
		index[k] = append(index[k], row)
	}
	return index
}

// GroupSum sums val per group key.
func GroupSum[R any, K comparable](rows []R, key func(R) K, val func(R) float64) map[K]float64 {
	sums := make(map[K]float64)
	for _, row := range rows {
		sums[key(row)] += val(row)
	}
	return sums
}

// GroupReduce folds rows into one accumulator per group key.
func GroupReduce[R any, K comparable, A any](rows []R, key func(R) K, fold func(A, R) A) map[K]A {
	accs := make(map[K]A)
	for _, row := range rows {
		k := key(row)
		accs[k] = fold(accs[k], row)
	}
	return accs
}

// Sum totals val across all rows.
func Sum[R any](rows []R, val func(R) float64) float64 {
	var total float64
	for _, row := range rows {
		total += val(row)
	}
	return total
}

// Filter returns the rows for which keep is true.
func Filter[R any](rows []R, keep func(R) bool) []R {
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// WeightedAvg computes sum(val*weight)/sum(weight). A zero total weight
// yields 0 so downstream aggregation stays total instead of erroring.
func WeightedAvg[R any](rows []R, val, weight func(R) float64) float64 {
	var num, den float64
	for _, row := range rows {
		w := weight(row)
		num += val(row) * w
		den += w
	}
	return Ratio(num, den)
}

// Ratio divides num by den, returning 0 when den is 0. All average-price
// outputs use this fallback so NaN never reaches a rendered value.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Pivot aggregates val into a rowKey x colKey matrix by summation.
// Missing cells are absent from the inner maps; readers fill 0.
func Pivot[R any, RK comparable, CK comparable](rows []R, rowKey func(R) RK, colKey func(R) CK, val func(R) float64) map[RK]map[CK]float64 {
	matrix := make(map[RK]map[CK]float64)
	for _, row := range rows {
		rk := rowKey(row)
		cells, ok := matrix[rk]
		if !ok {
			cells = make(map[CK]float64)
			matrix[rk] = cells
		}
		cells[colKey(row)] += val(row)
	}
	return matrix
}

// MinMax returns the minimum and maximum of val across rows; both are 0
// for an empty input.
func MinMax[R any](rows []R, val func(R) float64) (min, max float64) {
	for i, row := range rows {
		v := val(row)
		if i == 0 {
			min, max = v, v
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// CumSum returns the running total of values as a new slice.
func CumSum(values []float64) []float64 {
	out := make([]float64, len(values))
	var running float64
	for i, v := range values {
		running += v
		out[i] = running
	}
	return out
}

// SortedKeys returns the map keys in ascending order, for deterministic
// table and series output.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
