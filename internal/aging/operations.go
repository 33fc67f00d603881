package aging

import (
	"math"
	"sort"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
)

func pivotCols() []string {
	cols := make([]string, 0, len(Buckets())+1)
	for _, b := range Buckets() {
		cols = append(cols, string(b))
	}
	return append(cols, "Total")
}

// AgingByClient pivots the open receivable balance into client rows and
// bucket columns. All five buckets are always present, plus a Total
// column.
func (e *Engine) AgingByClient() (kpi.Pivot, error) {
	rows, cells := bucketPivot(e.agedLines(), func(l agedLine) string { return l.ClientName })
	return kpi.Pivot{
		RowLabel: "client",
		Rows:     rows,
		Cols:     pivotCols(),
		Cells:    cells,
	}, nil
}

// AgingByAgent is the same pivot grouped by agent.
func (e *Engine) AgingByAgent() (kpi.Pivot, error) {
	rows, cells := bucketPivot(e.agedLines(), func(l agedLine) string { return l.AgentName })
	return kpi.Pivot{
		RowLabel: "agent",
		Rows:     rows,
		Cols:     pivotCols(),
		Cells:    cells,
	}, nil
}

// CollapsedRow is an agent's balance split into current and overdue, for
// the two-column chart.
type CollapsedRow struct {
	AgentName string  `json:"agentName"`
	Current   float64 `json:"current"`
	Overdue   float64 `json:"overdue"`
}

// AgingByAgentCollapsed folds the agent pivot into Current vs Overdue.
// Current plus Overdue equals the pivot's Total per agent.
func (e *Engine) AgingByAgentCollapsed() ([]CollapsedRow, error) {
	pivot, err := e.AgingByAgent()
	if err != nil {
		return nil, err
	}
	rows := make([]CollapsedRow, 0, len(pivot.Rows))
	for _, agent := range pivot.Rows {
		row := CollapsedRow{AgentName: agent, Current: pivot.Cell(agent, string(BucketCurrent))}
		for _, b := range Buckets()[1:] {
			row.Overdue += pivot.Cell(agent, string(b))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summary is the portfolio headline: totals, overdue share, and how late
// the overdue part runs.
type Summary struct {
	TotalReceivable     float64 `json:"totalReceivable"`
	OverdueAmount       float64 `json:"overdueAmount"`
	OverdueRate         float64 `json:"overdueRate"`
	OverdueClients      int     `json:"overdueClients"`
	AvgDaysOverdue      float64 `json:"avgDaysOverdue"`
	OpenInvoiceCount    int     `json:"openInvoiceCount"`
	OverdueInvoiceCount int     `json:"overdueInvoiceCount"`
}

// PortfolioSummary condenses the aged portfolio into scalars. Totals sum
// absolute line balances; AvgDaysOverdue is a plain mean over overdue
// invoices.
func (e *Engine) PortfolioSummary() (Summary, error) {
	lines := e.agedLines()

	invoices := make(map[string]struct{})
	overdueInvoices := make(map[string]struct{})
	overdueClients := make(map[int]struct{})

	var s Summary
	var overdueDays float64
	for _, l := range lines {
		invoices[l.InvoiceID] = struct{}{}
		s.TotalReceivable += math.Abs(l.Balance)
		if l.Bucket == BucketCurrent {
			continue
		}
		s.OverdueAmount += math.Abs(l.Balance)
		overdueClients[l.ClientRef] = struct{}{}
		if _, seen := overdueInvoices[l.InvoiceID]; !seen {
			overdueInvoices[l.InvoiceID] = struct{}{}
			overdueDays += float64(-l.DaysToDue)
		}
	}
	s.OverdueRate = dataset.Ratio(s.OverdueAmount, s.TotalReceivable)
	s.AvgDaysOverdue = math.Abs(dataset.Ratio(overdueDays, float64(len(overdueInvoices))))
	s.OverdueClients = len(overdueClients)
	s.OpenInvoiceCount = len(invoices)
	s.OverdueInvoiceCount = len(overdueInvoices)
	return s, nil
}

// InvoiceRow is one open invoice for the drill-down table.
type InvoiceRow struct {
	InvoiceID  string  `json:"invoiceId"`
	ClientName string  `json:"clientName"`
	AgentName  string  `json:"agentName"`
	DueDate    string  `json:"dueDate"`
	DaysToDue  int     `json:"daysToDue"`
	Bucket     string  `json:"bucket"`
	Balance    float64 `json:"balance"`
}

// InvoiceDetail lists open invoices with their bucket, most overdue
// first.
func (e *Engine) InvoiceDetail() ([]InvoiceRow, error) {
	lines := e.agedLines()

	type header struct {
		row     InvoiceRow
		balance float64
	}
	acc := make(map[string]header)
	for _, l := range lines {
		h, ok := acc[l.InvoiceID]
		if !ok {
			h = header{row: InvoiceRow{
				InvoiceID:  l.InvoiceID,
				ClientName: l.ClientName,
				AgentName:  l.AgentName,
				DueDate:    l.DueDate.Format("2006-01-02"),
				DaysToDue:  l.DaysToDue,
				Bucket:     string(l.Bucket),
			}}
		}
		h.balance += l.Balance
		acc[l.InvoiceID] = h
	}

	rows := make([]InvoiceRow, 0, len(acc))
	for _, h := range acc {
		h.row.Balance = h.balance
		rows = append(rows, h.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DaysToDue != rows[j].DaysToDue {
			return rows[i].DaysToDue < rows[j].DaysToDue
		}
		return rows[i].InvoiceID < rows[j].InvoiceID
	})
	return rows, nil
}
