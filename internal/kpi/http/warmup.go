package kpihttp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/period"
)

// Warmup precomputes the headline payloads for the current month and
// monthsBack predecessors, under the same cache keys the handlers use.
// A cold cache after a snapshot refresh then costs the background job,
// not the first dashboard visitor.
func (h *Handler) Warmup(ctx context.Context, monthsBack int) error {
	if h.cache == nil {
		return nil
	}
	if monthsBack < 0 {
		monthsBack = 0
	}

	month := period.KeyOf(h.now().UTC())
	for i := 0; i <= monthsBack; i++ {
		p := periodQuery{Month: int(month.Month), Year: month.Year, Months: 1, Unit: kpi.UnitMoney}
		if err := h.warmMonth(ctx, p); err != nil {
			return err
		}
		month = month.Prev()
	}
	return nil
}

func (h *Handler) warmMonth(ctx context.Context, p periodQuery) error {
	type target struct {
		parts   []string
		compute func(e *engines) (interface{}, error)
	}
	targets := []target{
		{p.cacheParts("billing.net"), func(e *engines) (interface{}, error) {
			net, err := e.billing.NetBilling(p.billingParams(), kpi.UnitMoney)
			if err != nil {
				return nil, err
			}
			return map[string]float64{"net": net}, nil
		}},
		{p.cacheParts("billing.agents"), func(e *engines) (interface{}, error) {
			return e.billing.NetBillingByAgent(p.billingParams(), false)
		}},
		{p.cacheParts("billing.pivot"), func(e *engines) (interface{}, error) {
			return e.billing.ByBusinessUnitAndClass(p.billingParams(), kpi.UnitMoney)
		}},
		{[]string{"kpi", "aging.summary"}, func(e *engines) (interface{}, error) {
			return e.aging.PortfolioSummary()
		}},
	}

	for _, tgt := range targets {
		key, err := h.cache.BuildKey(ctx, tgt.parts...)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		err = h.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (interface{}, error) {
			e, err := h.engines(ctx)
			if err != nil {
				return nil, err
			}
			return tgt.compute(e)
		})
		if err != nil {
			return err
		}
		// Spread the computes a little; the snapshot is shared and each
		// compute holds a core.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}
