// Package aging buckets open receivables by days to due date and
// apportions header balances down to invoice lines.
package aging

import (
	"log/slog"
	"math"
	"time"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/normalize"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

// Bucket is a days-overdue range. The five buckets are exclusive and
// cover every integer.
type Bucket string

// Buckets in display order.
const (
	BucketCurrent Bucket = "Current"
	Bucket1to30   Bucket = "1-30"
	Bucket31to60  Bucket = "31-60"
	Bucket61to90  Bucket = "61-90"
	Bucket90Plus  Bucket = "90+"
)

// Buckets returns the five buckets in display order.
func Buckets() []Bucket {
	return []Bucket{BucketCurrent, Bucket1to30, Bucket31to60, Bucket61to90, Bucket90Plus}
}

// BucketOf assigns days-to-due to its bucket. Non-negative days are
// current; the overdue ranges are half-open on the older side.
func BucketOf(daysToDue int) Bucket {
	switch {
	case daysToDue >= 0:
		return BucketCurrent
	case daysToDue >= -30:
		return Bucket1to30
	case daysToDue >= -60:
		return Bucket31to60
	case daysToDue >= -90:
		return Bucket61to90
	}
	return Bucket90Plus
}

// Engine ages the open receivables of one snapshot as of a fixed date.
type Engine struct {
	snap   *source.Snapshot
	logger *slog.Logger
	asOf   time.Time
}

// NewEngine builds an aging engine. asOf anchors the days-to-due
// computation, normally the snapshot time's calendar date.
func NewEngine(snap *source.Snapshot, logger *slog.Logger, asOf time.Time) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{snap: snap, logger: logger, asOf: asOf}
}

// agedLine is an invoice line carrying its share of the header balance.
// Balance keeps its sign until final aggregation so partial credits are
// not misbucketed.
type agedLine struct {
	InvoiceID  string
	ClientRef  int
	ClientName string
	AgentRef   int
	AgentName  string
	ClassCode  string
	DueDate    time.Time
	DaysToDue  int
	Bucket     Bucket
	Balance    float64
}

func daysBetween(from, to time.Time) int {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(day(to).Sub(day(from)).Hours() / 24)
}

// agedLines apportions each open invoice's balance across its lines by
// subtotal share and assigns the bucket. Paid and cancelled invoices and
// warehouse-transfer paper are skipped; an invoice with a zero subtotal
// keeps its whole balance on a single synthetic line.
func (e *Engine) agedLines() []agedLine {
	invoices := dataset.Filter(e.snap.Invoices, func(inv source.Invoice) bool {
		return inv.Status != source.StatusPaid &&
			inv.Status != source.StatusCancelled &&
			inv.AgentRef != taxonomy.WarehouseTransferAgent
	})
	linesByInvoice := dataset.IndexAll(e.snap.InvoiceLines,
		func(l source.InvoiceLine) string { return l.InvoiceID })
	clients := e.snap.ClientNames()
	agents := e.snap.AgentNames()

	var out []agedLine
	for _, inv := range invoices {
		balance := normalize.Money(inv.Balance, inv.CurrencyFlag, inv.ExchangeRate)
		if balance == 0 {
			continue
		}
		days := daysBetween(e.asOf, inv.DueDate)

		base := agedLine{
			InvoiceID:  inv.ID,
			ClientRef:  inv.ClientRef,
			ClientName: clients[inv.ClientRef],
			AgentRef:   inv.AgentRef,
			AgentName:  agents[inv.AgentRef],
			DueDate:    inv.DueDate,
			DaysToDue:  days,
			Bucket:     BucketOf(days),
		}

		lines := linesByInvoice[inv.ID]
		if len(lines) == 0 || inv.Subtotal == 0 {
			whole := base
			whole.Balance = balance
			out = append(out, whole)
			continue
		}
		for _, line := range lines {
			share := base
			share.ClassCode = line.ClassCode
			share.Balance = balance * line.Subtotal / inv.Subtotal
			out = append(out, share)
		}
	}
	return out
}

func bucketPivot(lines []agedLine, rowKey func(agedLine) string) ([]string, map[string]map[string]float64) {
	byRow := dataset.IndexAll(lines, rowKey)

	cells := make(map[string]map[string]float64, len(byRow))
	for row, group := range byRow {
		cols := make(map[string]float64, len(Buckets())+1)
		for _, b := range Buckets() {
			cols[string(b)] = 0
		}
		var total float64
		for _, b := range Buckets() {
			sum := dataset.Sum(
				dataset.Filter(group, func(l agedLine) bool { return l.Bucket == b }),
				func(l agedLine) float64 { return l.Balance })
			// Sign is carried through the per-bucket sum; only the
			// displayed figure is absolute.
			cols[string(b)] = math.Abs(sum)
			total += math.Abs(sum)
		}
		cols["Total"] = total
		cells[row] = cols
	}
	return dataset.SortedKeys(cells), cells
}
