package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/source"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func fixtureSnapshot() *source.Snapshot {
	return &source.Snapshot{
		Invoices: []source.Invoice{
			{ID: "A100", ClientRef: 1, AgentRef: 1, IssueDate: day(5), Status: "Issued",
				CurrencyFlag: 1, ExchangeRate: 0, Subtotal: 1000},
			{ID: "A101", ClientRef: 2, AgentRef: 7, IssueDate: day(6), Status: source.StatusCancelled,
				CurrencyFlag: 1, Subtotal: 1000},
			{ID: "A102", ClientRef: 1, AgentRef: 1, IssueDate: day(7), Status: "Issued",
				CurrencyFlag: 2, ExchangeRate: 2.0, Subtotal: 500},
			// Warehouse transfer, never a sale.
			{ID: "A103", ClientRef: 1, AgentRef: 9999, IssueDate: day(8), Status: "Issued",
				CurrencyFlag: 1, Subtotal: 9000},
		},
		InvoiceLines: []source.InvoiceLine{
			{InvoiceID: "A100", ProductRef: "PS-01", ClassCode: "PS", QtyDelivered: 10, Subtotal: 1000},
			{InvoiceID: "A101", ProductRef: "PS-01", ClassCode: "PS", QtyDelivered: 10, Subtotal: 1000},
			{InvoiceID: "A102", ProductRef: "PP-02", ClassCode: "PP", QtyDelivered: 4, Subtotal: 500},
			{InvoiceID: "A103", ProductRef: "PS-01", ClassCode: "PS", QtyDelivered: 90, Subtotal: 9000},
			// Orphan line: header does not exist.
			{InvoiceID: "GONE", ProductRef: "PS-01", ClassCode: "PS", QtyDelivered: 1, Subtotal: 77},
		},
		CreditNotes: []source.CreditNote{
			{ID: "N1", Kind: source.NoteKindReturn, DocClass: source.DocClassCredit, Date: day(10),
				ClientRef: 1, AgentRef: 1, Status: "Issued", CurrencyFlag: 1, Subtotal: 100},
			{ID: "N2", Kind: source.NoteKindDiscount, DocClass: source.DocClassNote, Date: day(11),
				ClientRef: 1, AgentRef: 1, Status: "Issued", LinkedInvoiceID: "A100",
				CurrencyFlag: 1, Subtotal: 50},
			{ID: "N3", Kind: source.NoteKindReturn, DocClass: source.DocClassCredit, Date: day(12),
				ClientRef: 1, AgentRef: 1, Status: "Issued", LinkedInvoiceID: "A100",
				CurrencyFlag: 1, Subtotal: 30},
			{ID: "N4", Kind: source.NoteKindReturn, DocClass: source.DocClassCredit, Date: day(13),
				ClientRef: 1, AgentRef: 1, Status: source.StatusCancelled, CurrencyFlag: 1, Subtotal: 999},
		},
		CreditNoteLines: []source.CreditNoteLine{
			{NoteID: "N1", ProductRef: "PS-01", Qty: 2, Total: 100, Unit: "PZA"},
			{NoteID: "N2", ProductRef: "PS-01", Qty: 0, Total: 0, Unit: "PZA"},
			// Advance offset code on a return-kind note.
			{NoteID: "N3", ProductRef: "OTRO-40", Qty: 1, Total: 30, Unit: "PZA"},
			{NoteID: "N4", ProductRef: "PS-01", Qty: 9, Total: 999, Unit: "PZA"},
		},
		Products: []source.Product{
			{Ref: "PS-01", ClassCode: "PS", Unit: "PZA", WeightFactor: 5},
			{Ref: "PP-02", ClassCode: "PP", Unit: "PZA", WeightFactor: 2},
		},
		Clients: []source.Client{{Ref: 1, Name: "EMPAQUES NORTE"}, {Ref: 2, Name: "SUR SA"}},
		Agents:  []source.Agent{{Ref: 1, Name: "PEREZ JUAN"}, {Ref: 7, Name: "RIOS ANA"}},
	}
}

func params() Params {
	return Params{Month: 3, Year: 2026, Months: 1}
}

func TestNetBillingMoney(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})

	got, err := e.NetBilling(params(), kpi.UnitMoney)
	require.NoError(t, err)
	// Gross: 1000 (A100) + 500*2 (A102 foreign at rate 2). Cancelled A101,
	// transfer A103, and the orphan line are excluded.
	// Credits: return 100 + discount 50 + advance 30.
	require.InDelta(t, 2000.0-180.0, got, 1e-9)
}

func TestNetBillingCancelledExcluded(t *testing.T) {
	snap := &source.Snapshot{
		Invoices: []source.Invoice{
			{ID: "A1", AgentRef: 1, IssueDate: day(1), Status: "Issued", CurrencyFlag: 1, Subtotal: 500},
			{ID: "A2", AgentRef: 1, IssueDate: day(1), Status: source.StatusCancelled, CurrencyFlag: 1, Subtotal: 500},
		},
		InvoiceLines: []source.InvoiceLine{
			{InvoiceID: "A1", ProductRef: "PS-01", ClassCode: "PS", Subtotal: 500},
			{InvoiceID: "A2", ProductRef: "PS-01", ClassCode: "PS", Subtotal: 500},
		},
	}
	e := NewEngine(snap, nil, Config{})
	got, err := e.NetBilling(params(), kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, 500.0, got, 1e-9)
}

func TestNetBillingReturnScenario(t *testing.T) {
	// One invoice of 1000 and one return of 100 in the same window: net 900.
	snap := &source.Snapshot{
		Invoices: []source.Invoice{
			{ID: "A1", AgentRef: 1, IssueDate: day(1), Status: "Issued", CurrencyFlag: 1, Subtotal: 1000},
		},
		InvoiceLines: []source.InvoiceLine{
			{InvoiceID: "A1", ProductRef: "PS-01", ClassCode: "PS", Subtotal: 1000},
		},
		CreditNotes: []source.CreditNote{
			{ID: "N1", Kind: source.NoteKindReturn, DocClass: source.DocClassCredit,
				Date: day(2), AgentRef: 1, Status: "Issued", CurrencyFlag: 1},
		},
		CreditNoteLines: []source.CreditNoteLine{
			{NoteID: "N1", ProductRef: "PS-01", Qty: 1, Total: 100, Unit: "PZA"},
		},
	}
	e := NewEngine(snap, nil, Config{})
	got, err := e.NetBilling(params(), kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, 900.0, got, 1e-9)
}

func TestNetBillingWeight(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	got, err := e.NetBilling(params(), kpi.UnitWeight)
	require.NoError(t, err)
	// Gross: 10*5 + 4*2 = 58 KG. Returned: N1 only, 2*5 = 10 KG
	// (discounts and advances carry no weight).
	require.InDelta(t, 48.0, got, 1e-9)
}

func TestNetBillingWindowExcludesOtherMonths(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	got, err := e.NetBilling(Params{Month: 2, Year: 2026, Months: 1}, kpi.UnitMoney)
	require.NoError(t, err)
	require.Zero(t, got)
}

func TestNetBillingUnknownUnit(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	_, err := e.NetBilling(params(), kpi.Unit("TONS"))
	require.ErrorIs(t, err, kpi.ErrUnknownUnit)
	require.True(t, kpi.IsInputError(err))
}

func TestNetBillingInvalidRange(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	_, err := e.NetBilling(Params{Month: 3, Year: 2026, Months: 0}, kpi.UnitMoney)
	require.Error(t, err)
	require.True(t, kpi.IsInputError(err))
}

func TestCreditClassification(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	win, err := e.window(params())
	require.NoError(t, err)
	lines := e.creditLines(params(), win, e.agentFilter(params()))
	require.Len(t, lines, 3)

	byNote := map[string]creditLine{}
	for _, l := range lines {
		byNote[l.NoteID] = l
	}
	require.Equal(t, CreditReturn, byNote["N1"].Kind)
	require.Equal(t, CreditDiscount, byNote["N2"].Kind)
	// Advance offset product wins over the note kind, and the class comes
	// from the linked invoice's first line.
	require.Equal(t, CreditAdvance, byNote["N3"].Kind)
	require.Equal(t, "PS", byNote["N3"].ClassCode)
	require.Equal(t, "PS", byNote["N2"].ClassCode)
}

func TestCreditWithoutLinkedInvoiceClassifiesOther(t *testing.T) {
	snap := fixtureSnapshot()
	snap.CreditNotes[1].LinkedInvoiceID = ""
	e := NewEngine(snap, nil, Config{})
	win, _ := e.window(params())
	lines := e.creditLines(params(), win, e.agentFilter(params()))
	for _, l := range lines {
		if l.NoteID == "N2" {
			require.Equal(t, ClassOther, l.ClassCode)
		}
	}
}

func TestNetBillingByColumnDecomposesTotal(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	rows, err := e.NetBillingByColumn(params(), kpi.GroupByClass)
	require.NoError(t, err)

	var net float64
	for _, row := range rows {
		net += row.Net
	}
	total, err := e.NetBilling(params(), kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, total, net, 1e-9)
}

func TestNetBillingByColumnRejectsUnknownKey(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	_, err := e.NetBillingByColumn(params(), kpi.GroupKey("favorite_color"))
	require.ErrorIs(t, err, kpi.ErrUnknownGroupKey)
}

func TestNetBillingByAgent(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	rows, err := e.NetBillingByAgent(params(), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "PEREZ JUAN", rows[0].AgentName)
	require.InDelta(t, 2000.0, rows[0].Gross, 1e-9)
	require.InDelta(t, 1820.0, rows[0].Net, 1e-9)
	// Avg price = gross money / gross weight.
	require.InDelta(t, 2000.0/58.0, rows[0].AvgPricePerKg, 1e-9)
}

func TestNetBillingByAgentZeroWeightAvgPriceIsZero(t *testing.T) {
	snap := &source.Snapshot{
		Invoices: []source.Invoice{
			{ID: "A1", AgentRef: 1, IssueDate: day(1), Status: "Issued", CurrencyFlag: 1},
		},
		InvoiceLines: []source.InvoiceLine{
			{InvoiceID: "A1", ProductRef: "X", ClassCode: "PS", Subtotal: 100, QtyDelivered: 3},
		},
		Agents: []source.Agent{{Ref: 1, Name: "PEREZ JUAN"}},
	}
	e := NewEngine(snap, nil, Config{})
	rows, err := e.NetBillingByAgent(params(), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Product master missing: weight 0, avg price falls back to 0.
	require.Zero(t, rows[0].AvgPricePerKg)
}

func TestNetBillingByAgentWithBusinessUnit(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	rows, err := e.NetBillingByAgent(params(), true)
	require.NoError(t, err)
	// PS and PP both map to RÍGIDOS, so a single row remains.
	require.Len(t, rows, 1)
	require.Equal(t, "RÍGIDOS", rows[0].BusinessUnit)
}

func TestAgentAllowSetFilters(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	p := params()
	p.Agents = []int{7}
	got, err := e.NetBilling(p, kpi.UnitMoney)
	require.NoError(t, err)
	// Agent 7 only had the cancelled invoice.
	require.Zero(t, got)
}

func TestDayBilling(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	got, err := e.DayBilling(day(5), nil, nil, kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, got, 1e-9)

	got, err = e.DayBilling(day(10), nil, nil, kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, -100.0, got, 1e-9)
}

func TestNetBillingTimeseriesCumulative(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	points, err := e.NetBillingTimeseries(params(), true)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	last := points[len(points)-1]

	total, err := e.NetBilling(params(), kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, total, last.Money, 1e-9)

	for i := 1; i < len(points); i++ {
		require.True(t, points[i].Date.After(points[i-1].Date))
	}
}

func TestByBusinessUnitAndClassPivot(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	pivot, err := e.ByBusinessUnitAndClass(params(), kpi.UnitMoney)
	require.NoError(t, err)
	require.Contains(t, pivot.Rows, "RÍGIDOS")
	// PS: 1000 gross − 180 credits; PP: 1000.
	require.InDelta(t, 820.0, pivot.Cell("RÍGIDOS", "PS"), 1e-9)
	require.InDelta(t, 1000.0, pivot.Cell("RÍGIDOS", "PP"), 1e-9)
	require.Zero(t, pivot.Cell("PET", "PS"))
}

func TestBreakdownSplitsAdvances(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	rows, err := e.Breakdown(params(), kpi.GroupByClass)
	require.NoError(t, err)

	var ps BreakdownRow
	for _, row := range rows {
		if row.Key == "PS" {
			ps = row
		}
	}
	require.InDelta(t, 30.0, ps.AdvancesApplied, 1e-9)
	// Credits on PS were 180 total, so returns+discounts = 150.
	require.InDelta(t, 150.0, ps.ReturnsDiscounts, 1e-9)
	require.InDelta(t, 820.0, ps.Net, 1e-9)
}

func TestClassFilter(t *testing.T) {
	e := NewEngine(fixtureSnapshot(), nil, Config{})
	p := params()
	p.Classes = []string{"PP"}
	got, err := e.NetBilling(p, kpi.UnitMoney)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, got, 1e-9)
}
