package billing

import (
	"log/slog"

	"github.com/laminex-bi/laminex-bi/internal/dataset"
	"github.com/laminex-bi/laminex-bi/internal/normalize"
	"github.com/laminex-bi/laminex-bi/internal/period"
	"github.com/laminex-bi/laminex-bi/internal/source"
	"github.com/laminex-bi/laminex-bi/internal/taxonomy"
)

func inSet(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// billedLines joins invoice lines to their headers and the product and
// client masters, applies the window, class, and agent filters, and
// normalizes money and weight. Cancelled invoices, warehouse transfers,
// and orphan lines drop out here.
func (e *Engine) billedLines(p Params, win period.Window, filter taxonomy.AgentFilter) []billedLine {
	headers := dataset.Index(
		dataset.Filter(e.snap.Invoices, func(inv source.Invoice) bool {
			return inv.Status != source.StatusCancelled &&
				inv.AgentRef != taxonomy.WarehouseTransferAgent
		}),
		func(inv source.Invoice) string { return inv.ID },
	)
	products := e.snap.ProductIndex()
	clients := e.snap.ClientNames()

	var out []billedLine
	for _, line := range e.snap.InvoiceLines {
		header, ok := headers[line.InvoiceID]
		if !ok {
			continue
		}
		if !win.Contains(header.IssueDate) {
			continue
		}
		if !inSet(p.Classes, line.ClassCode) {
			continue
		}
		if filter.Restricted() && !filter.Keep(header.AgentRef) {
			continue
		}

		// Missing product master rows leave the factor at 0; the line still
		// counts for money, its weight contribution is 0.
		product := products[line.ProductRef]

		out = append(out, billedLine{
			Date:       header.IssueDate,
			InvoiceID:  line.InvoiceID,
			ClientRef:  header.ClientRef,
			ClientName: clients[header.ClientRef],
			AgentRef:   header.AgentRef,
			ProductRef: line.ProductRef,
			ClassCode:  line.ClassCode,
			Money:      normalize.Money(line.Subtotal-line.Discount, header.CurrencyFlag, header.ExchangeRate),
			Weight:     normalize.WeightRaw(line.QtyDelivered, product.WeightFactor),
		})
	}
	return out
}

// invoiceClass resolves the class of a linked invoice from its first line.
// Heterogeneous invoices are logged; an empty link classifies as OTRO.
func (e *Engine) invoiceClass(invoiceID string, linesByInvoice map[string][]source.InvoiceLine) string {
	if invoiceID == "" {
		return ClassOther
	}
	lines := linesByInvoice[invoiceID]
	if len(lines) == 0 {
		return ClassOther
	}
	first := lines[0].ClassCode
	for _, line := range lines[1:] {
		if line.ClassCode != first {
			e.logger.Warn("credit links invoice with heterogeneous classes",
				slog.String("invoice", invoiceID))
			break
		}
	}
	return first
}

// creditLines classifies credit notes and joins them to the product and
// client masters. Classification rule, in order: the advance-offset product
// code wins, then note kind Discount, then Return, else uncategorized.
// Advance and discount credits take their class from the linked invoice.
func (e *Engine) creditLines(p Params, win period.Window, filter taxonomy.AgentFilter) []creditLine {
	notes := dataset.Filter(e.snap.CreditNotes, func(n source.CreditNote) bool {
		if n.DocClass != source.DocClassCredit && n.DocClass != source.DocClassNote {
			return false
		}
		if n.Status == source.StatusCancelled {
			return false
		}
		if !win.Contains(n.Date) {
			return false
		}
		if filter.Restricted() && !filter.Keep(n.AgentRef) {
			return false
		}
		return true
	})

	linesByNote := dataset.IndexAll(e.snap.CreditNoteLines,
		func(l source.CreditNoteLine) string { return l.NoteID })
	invoiceLines := dataset.IndexAll(e.snap.InvoiceLines,
		func(l source.InvoiceLine) string { return l.InvoiceID })
	products := e.snap.ProductIndex()
	clients := e.snap.ClientNames()

	var out []creditLine
	for _, note := range notes {
		lines := linesByNote[note.ID]
		if len(lines) == 0 {
			// A header without detail still credits its subtotal.
			lines = []source.CreditNoteLine{{NoteID: note.ID}}
		}
		for _, line := range lines {
			kind := e.classifyCredit(note, line)

			class := products[line.ProductRef].ClassCode
			if kind == CreditAdvance || kind == CreditDiscount {
				class = e.invoiceClass(note.LinkedInvoiceID, invoiceLines)
			}
			if !inSet(p.Classes, class) {
				continue
			}

			amount := note.Subtotal
			if kind == CreditReturn {
				amount = line.Total
			}

			var weight float64
			if kind == CreditReturn {
				product := products[line.ProductRef]
				weight = normalize.Weight(line.Qty, line.Unit, product.WeightFactor)
			}

			out = append(out, creditLine{
				Date:       note.Date,
				NoteID:     note.ID,
				Kind:       kind,
				ClientRef:  note.ClientRef,
				ClientName: clients[note.ClientRef],
				AgentRef:   note.AgentRef,
				ProductRef: line.ProductRef,
				ClassCode:  class,
				Money:      normalize.Money(amount, note.CurrencyFlag, note.ExchangeRate),
				Weight:     weight,
			})
		}
	}
	return out
}

func (e *Engine) classifyCredit(note source.CreditNote, line source.CreditNoteLine) CreditKind {
	switch {
	case line.ProductRef == e.advanceCode:
		return CreditAdvance
	case note.Kind == source.NoteKindDiscount:
		return CreditDiscount
	case note.Kind == source.NoteKindReturn:
		return CreditReturn
	}
	return CreditUncategorized
}
