package source

import "context"

// MemoryProvider serves a fixed set of rows. It backs tests and local
// development seeds. Optional per-table errors let tests exercise fetch
// failure paths.
type MemoryProvider struct {
	InvoiceRows           []Invoice
	InvoiceLineRows       []InvoiceLine
	CreditNoteRows        []CreditNote
	CreditNoteLineRows    []CreditNoteLine
	SalesOrderRows        []SalesOrder
	SalesOrderLineRows    []SalesOrderLine
	PurchaseOrderRows     []PurchaseOrder
	PurchaseOrderLineRows []PurchaseOrderLine
	SupplierInvoiceRows   []SupplierInvoice
	StockPositionRows     []StockPosition
	ProductionResultRows  []ProductionResult
	ProductRows           []Product
	ClientRows            []Client
	SupplierRows          []Supplier
	AgentRows             []Agent

	// Errs maps table name to a forced error.
	Errs map[string]error
}

var _ Provider = (*MemoryProvider)(nil)

func memTable[R any](p *MemoryProvider, table string, rows []R) ([]R, error) {
	if err := p.Errs[table]; err != nil {
		return nil, err
	}
	out := make([]R, len(rows))
	copy(out, rows)
	return out, nil
}

func (p *MemoryProvider) Invoices(context.Context) ([]Invoice, error) {
	return memTable(p, "invoices", p.InvoiceRows)
}

func (p *MemoryProvider) InvoiceLines(context.Context) ([]InvoiceLine, error) {
	return memTable(p, "invoice_lines", p.InvoiceLineRows)
}

func (p *MemoryProvider) CreditNotes(context.Context) ([]CreditNote, error) {
	return memTable(p, "credit_notes", p.CreditNoteRows)
}

func (p *MemoryProvider) CreditNoteLines(context.Context) ([]CreditNoteLine, error) {
	return memTable(p, "credit_note_lines", p.CreditNoteLineRows)
}

func (p *MemoryProvider) SalesOrders(context.Context) ([]SalesOrder, error) {
	return memTable(p, "sales_orders", p.SalesOrderRows)
}

func (p *MemoryProvider) SalesOrderLines(context.Context) ([]SalesOrderLine, error) {
	return memTable(p, "sales_order_lines", p.SalesOrderLineRows)
}

func (p *MemoryProvider) PurchaseOrders(context.Context) ([]PurchaseOrder, error) {
	return memTable(p, "purchase_orders", p.PurchaseOrderRows)
}

func (p *MemoryProvider) PurchaseOrderLines(context.Context) ([]PurchaseOrderLine, error) {
	return memTable(p, "purchase_order_lines", p.PurchaseOrderLineRows)
}

func (p *MemoryProvider) SupplierInvoices(context.Context) ([]SupplierInvoice, error) {
	return memTable(p, "supplier_invoices", p.SupplierInvoiceRows)
}

func (p *MemoryProvider) StockPositions(context.Context) ([]StockPosition, error) {
	return memTable(p, "stock_positions", p.StockPositionRows)
}

func (p *MemoryProvider) ProductionResults(context.Context) ([]ProductionResult, error) {
	return memTable(p, "production_results", p.ProductionResultRows)
}

func (p *MemoryProvider) Products(context.Context) ([]Product, error) {
	return memTable(p, "products", p.ProductRows)
}

func (p *MemoryProvider) Clients(context.Context) ([]Client, error) {
	return memTable(p, "clients", p.ClientRows)
}

func (p *MemoryProvider) Suppliers(context.Context) ([]Supplier, error) {
	return memTable(p, "suppliers", p.SupplierRows)
}

func (p *MemoryProvider) Agents(context.Context) ([]Agent, error) {
	return memTable(p, "agents", p.AgentRows)
}
