package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

var asOf = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

func due(daysFromNow int) time.Time {
	return asOf.AddDate(0, 0, daysFromNow)
}

func TestBucketBoundaries(t *testing.T) {
	cases := map[int]Bucket{
		10:   BucketCurrent,
		0:    BucketCurrent,
		-1:   Bucket1to30,
		-30:  Bucket1to30,
		-31:  Bucket31to60,
		-60:  Bucket31to60,
		-61:  Bucket61to90,
		-90:  Bucket61to90,
		-91:  Bucket90Plus,
		-400: Bucket90Plus,
	}
	for days, want := range cases {
		require.Equal(t, want, BucketOf(days), "days=%d", days)
	}
}

func TestBucketAssignmentIsTotalAndExclusive(t *testing.T) {
	for days := -200; days <= 200; days++ {
		var matches int
		got := BucketOf(days)
		for _, b := range Buckets() {
			if b == got {
				matches++
			}
		}
		require.Equal(t, 1, matches, "days=%d", days)
	}
}

func fixtureSnapshot() *source.Snapshot {
	return &source.Snapshot{
		Invoices: []source.Invoice{
			// Current: due in 5 days.
			{ID: "A1", ClientRef: 1, AgentRef: 1, DueDate: due(5), Status: "Issued",
				CurrencyFlag: 1, Subtotal: 1000, Balance: 600},
			// 45 days overdue.
			{ID: "A2", ClientRef: 1, AgentRef: 1, DueDate: due(-45), Status: "Issued",
				CurrencyFlag: 1, Subtotal: 400, Balance: 400},
			// Paid: out.
			{ID: "A3", ClientRef: 2, AgentRef: 2, DueDate: due(-10), Status: source.StatusPaid,
				CurrencyFlag: 1, Subtotal: 100, Balance: 0},
			// Foreign currency, 100 overdue at rate 2.
			{ID: "A4", ClientRef: 2, AgentRef: 2, DueDate: due(-100), Status: "Issued",
				CurrencyFlag: 2, ExchangeRate: 2.0, Subtotal: 100, Balance: 100},
		},
		InvoiceLines: []source.InvoiceLine{
			// A1 splits 3:1 across two lines.
			{InvoiceID: "A1", ProductRef: "X1", ClassCode: "PS", Subtotal: 750},
			{InvoiceID: "A1", ProductRef: "X2", ClassCode: "PP", Subtotal: 250},
			{InvoiceID: "A2", ProductRef: "X1", ClassCode: "PS", Subtotal: 400},
			{InvoiceID: "A4", ProductRef: "X1", ClassCode: "PS", Subtotal: 100},
		},
		Clients: []source.Client{{Ref: 1, Name: "EMPAQUES NORTE"}, {Ref: 2, Name: "SUR SA"}},
		Agents:  []source.Agent{{Ref: 1, Name: "PEREZ JUAN"}, {Ref: 2, Name: "RIOS ANA"}},
	}
}

func TestAgingByClient(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, asOf)
	pivot, err := e.AgingByClient()
	require.NoError(t, err)

	// Every bucket column is present for every row, plus Total.
	require.Equal(t, []string{"Current", "1-30", "31-60", "61-90", "90+", "Total"}, pivot.Cols)
	for _, row := range pivot.Rows {
		for _, col := range pivot.Cols {
			_, ok := pivot.Cells[row][col]
			require.True(t, ok, "row=%s col=%s", row, col)
		}
	}

	// A1's 600 balance apportioned 3:1 still lands whole in Current.
	require.InDelta(t, 600.0, pivot.Cell("EMPAQUES NORTE", "Current"), 1e-9)
	require.InDelta(t, 400.0, pivot.Cell("EMPAQUES NORTE", "31-60"), 1e-9)
	require.InDelta(t, 1000.0, pivot.Cell("EMPAQUES NORTE", "Total"), 1e-9)

	// A4: 100 × 2.0 in the 90+ bucket; A3 is paid and absent.
	require.InDelta(t, 200.0, pivot.Cell("SUR SA", "90+"), 1e-9)
	require.Zero(t, pivot.Cell("SUR SA", "1-30"))
}

func TestAgingByAgentCollapsed(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, asOf)
	pivot, err := e.AgingByAgent()
	require.NoError(t, err)
	collapsed, err := e.AgingByAgentCollapsed()
	require.NoError(t, err)

	for _, row := range collapsed {
		require.InDelta(t, pivot.Cell(row.AgentName, "Total"), row.Current+row.Overdue, 1e-9,
			"agent=%s", row.AgentName)
	}
}

func TestApportionmentPreservesSign(t *testing.T) {
	snap := &source.Snapshot{
		Invoices: []source.Invoice{
			// Overpaid invoice: negative balance nets against a positive one
			// in the same bucket before the absolute value is taken.
			{ID: "A1", ClientRef: 1, DueDate: due(-10), Status: "Issued",
				CurrencyFlag: 1, Subtotal: 100, Balance: 500},
			{ID: "A2", ClientRef: 1, DueDate: due(-10), Status: "Issued",
				CurrencyFlag: 1, Subtotal: 100, Balance: -200},
		},
		Clients: []source.Client{{Ref: 1, Name: "EMPAQUES NORTE"}},
	}
	e := NewEngine(snap, nil, asOf)
	pivot, err := e.AgingByClient()
	require.NoError(t, err)
	require.InDelta(t, 300.0, pivot.Cell("EMPAQUES NORTE", "1-30"), 1e-9)
}

func TestPortfolioSummary(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, asOf)
	s, err := e.PortfolioSummary()
	require.NoError(t, err)

	require.InDelta(t, 1200.0, s.TotalReceivable, 1e-9)
	require.InDelta(t, 600.0, s.OverdueAmount, 1e-9)
	require.InDelta(t, 0.5, s.OverdueRate, 1e-9)
	require.Equal(t, 2, s.OverdueClients)
	require.Equal(t, 3, s.OpenInvoiceCount)
	require.Equal(t, 2, s.OverdueInvoiceCount)
	// Plain mean over the two overdue invoices, 45 and 100 days.
	require.InDelta(t, 72.5, s.AvgDaysOverdue, 1e-9)
}

func TestPortfolioSummarySumsAbsoluteBalances(t *testing.T) {
	snap := fixtureSnapshot()
	// Overpaid invoice: its credit balance still counts toward the
	// portfolio totals at absolute value.
	snap.Invoices = append(snap.Invoices, source.Invoice{
		ID: "A5", ClientRef: 1, AgentRef: 1, DueDate: due(-10), Status: "Issued",
		CurrencyFlag: 1, Subtotal: 100, Balance: -150,
	})

	e := NewEngine(snap, nil, asOf)
	s, err := e.PortfolioSummary()
	require.NoError(t, err)
	require.InDelta(t, 1350.0, s.TotalReceivable, 1e-9)
	require.InDelta(t, 750.0, s.OverdueAmount, 1e-9)
	// Overdue days 45, 100, 10 across three invoices.
	require.InDelta(t, 155.0/3.0, s.AvgDaysOverdue, 1e-9)
}

func TestInvoiceDetail(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, asOf)
	rows, err := e.InvoiceDetail()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Most overdue first.
	require.Equal(t, "A4", rows[0].InvoiceID)
	require.Equal(t, "90+", rows[0].Bucket)
	require.InDelta(t, 200.0, rows[0].Balance, 1e-9)
	require.Equal(t, "A2", rows[1].InvoiceID)
	require.Equal(t, "A1", rows[2].InvoiceID)
	// Apportioned shares reassemble into the full header balance.
	require.InDelta(t, 600.0, rows[2].Balance, 1e-9)
}

func TestWarehouseTransfersExcluded(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Invoices = append(snap.Invoices, source.Invoice{
		ID: "T1", ClientRef: 1, AgentRef: taxonomy.WarehouseTransferAgent,
		DueDate: due(-5), Status: "Issued", CurrencyFlag: 1,
		Subtotal: 900, Balance: 900,
	})

	e := NewEngine(snap, nil, asOf)
	pivot, err := e.AgingByClient()
	require.NoError(t, err)
	require.InDelta(t, 1000.0, pivot.Cell("EMPAQUES NORTE", "Total"), 1e-9)

	s, err := e.PortfolioSummary()
	require.NoError(t, err)
	require.InDelta(t, 1200.0, s.TotalReceivable, 1e-9)
	require.Equal(t, 3, s.OpenInvoiceCount)
}

func TestZeroBalanceInvoiceSkipped(t *testing.T) {
	snap := &source.Snapshot{
		Invoices: []source.Invoice{
			{ID: "A1", ClientRef: 1, DueDate: due(-5), Status: "Issued",
				CurrencyFlag: 1, Subtotal: 100, Balance: 0},
		},
		Clients: []source.Client{{Ref: 1, Name: "EMPAQUES NORTE"}},
	}
	e := NewEngine(snap, nil, asOf)
	pivot, err := e.AgingByClient()
	require.NoError(t, err)
	require.Empty(t, pivot.Rows)
}
