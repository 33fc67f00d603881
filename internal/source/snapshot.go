package source

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Provider exposes a tabular read per named entity. Implementations return
// all rows with the fixed column set; a failure surfaces as a FetchError
// from Load, never as silently empty data.
type Provider interface {
	Invoices(ctx context.Context) ([]Invoice, error)
	InvoiceLines(ctx context.Context) ([]InvoiceLine, error)
	CreditNotes(ctx context.Context) ([]CreditNote, error)
	CreditNoteLines(ctx context.Context) ([]CreditNoteLine, error)
	SalesOrders(ctx context.Context) ([]SalesOrder, error)
	SalesOrderLines(ctx context.Context) ([]SalesOrderLine, error)
	PurchaseOrders(ctx context.Context) ([]PurchaseOrder, error)
	PurchaseOrderLines(ctx context.Context) ([]PurchaseOrderLine, error)
	SupplierInvoices(ctx context.Context) ([]SupplierInvoice, error)
	StockPositions(ctx context.Context) ([]StockPosition, error)
	ProductionResults(ctx context.Context) ([]ProductionResult, error)
	Products(ctx context.Context) ([]Product, error)
	Clients(ctx context.Context) ([]Client, error)
	Suppliers(ctx context.Context) ([]Supplier, error)
	Agents(ctx context.Context) ([]Agent, error)
}

// Snapshot is one internally consistent read of every source table. All
// aggregators compute from a snapshot and treat it as immutable.
type Snapshot struct {
	ID      string
	TakenAt time.Time

	Invoices           []Invoice
	InvoiceLines       []InvoiceLine
	CreditNotes        []CreditNote
	CreditNoteLines    []CreditNoteLine
	SalesOrders        []SalesOrder
	SalesOrderLines    []SalesOrderLine
	PurchaseOrders     []PurchaseOrder
	PurchaseOrderLines []PurchaseOrderLine
	SupplierInvoices   []SupplierInvoice
	StockPositions     []StockPosition
	ProductionResults  []ProductionResult
	Products           []Product
	Clients            []Client
	Suppliers          []Supplier
	Agents             []Agent
}

// Load reads every table through the provider, in parallel. The first
// failing table aborts the load and its FetchError is returned.
func Load(ctx context.Context, p Provider) (*Snapshot, error) {
	snap := &Snapshot{
		ID:      uuid.NewString(),
		TakenAt: time.Now().UTC(),
	}

	g, ctx := errgroup.WithContext(ctx)

	fetch := func(table string, load func(context.Context) error) {
		g.Go(func() error {
			return fetchErr(table, load(ctx))
		})
	}

	fetch("invoices", func(ctx context.Context) (err error) {
		snap.Invoices, err = p.Invoices(ctx)
		return
	})
	fetch("invoice_lines", func(ctx context.Context) (err error) {
		snap.InvoiceLines, err = p.InvoiceLines(ctx)
		return
	})
	fetch("credit_notes", func(ctx context.Context) (err error) {
		snap.CreditNotes, err = p.CreditNotes(ctx)
		return
	})
	fetch("credit_note_lines", func(ctx context.Context) (err error) {
		snap.CreditNoteLines, err = p.CreditNoteLines(ctx)
		return
	})
	fetch("sales_orders", func(ctx context.Context) (err error) {
		snap.SalesOrders, err = p.SalesOrders(ctx)
		return
	})
	fetch("sales_order_lines", func(ctx context.Context) (err error) {
		snap.SalesOrderLines, err = p.SalesOrderLines(ctx)
		return
	})
	fetch("purchase_orders", func(ctx context.Context) (err error) {
		snap.PurchaseOrders, err = p.PurchaseOrders(ctx)
		return
	})
	fetch("purchase_order_lines", func(ctx context.Context) (err error) {
		snap.PurchaseOrderLines, err = p.PurchaseOrderLines(ctx)
		return
	})
	fetch("supplier_invoices", func(ctx context.Context) (err error) {
		snap.SupplierInvoices, err = p.SupplierInvoices(ctx)
		return
	})
	fetch("stock_positions", func(ctx context.Context) (err error) {
		snap.StockPositions, err = p.StockPositions(ctx)
		return
	})
	fetch("production_results", func(ctx context.Context) (err error) {
		snap.ProductionResults, err = p.ProductionResults(ctx)
		return
	})
	fetch("products", func(ctx context.Context) (err error) {
		snap.Products, err = p.Products(ctx)
		return
	})
	fetch("clients", func(ctx context.Context) (err error) {
		snap.Clients, err = p.Clients(ctx)
		return
	})
	fetch("suppliers", func(ctx context.Context) (err error) {
		snap.Suppliers, err = p.Suppliers(ctx)
		return
	})
	fetch("agents", func(ctx context.Context) (err error) {
		snap.Agents, err = p.Agents(ctx)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ProductIndex returns the product master keyed by ref.
func (s *Snapshot) ProductIndex() map[string]Product {
	index := make(map[string]Product, len(s.Products))
	for _, p := range s.Products {
		index[p.Ref] = p
	}
	return index
}

// ClientNames returns client ref -> display name.
func (s *Snapshot) ClientNames() map[int]string {
	names := make(map[int]string, len(s.Clients))
	for _, c := range s.Clients {
		names[c.Ref] = c.Name
	}
	return names
}

// SupplierNames returns supplier ref -> display name.
func (s *Snapshot) SupplierNames() map[int]string {
	names := make(map[int]string, len(s.Suppliers))
	for _, sp := range s.Suppliers {
		names[sp.Ref] = sp.Name
	}
	return names
}

// AgentNames returns agent ref -> display name.
func (s *Snapshot) AgentNames() map[int]string {
	names := make(map[int]string, len(s.Agents))
	for _, a := range s.Agents {
		names[a.Ref] = a.Name
	}
	return names
}

// ResolveAgents maps display identifiers to agent refs, skipping unknown
// names. Deny-listed refs are handled by the caller's AgentFilter, not here.
func (s *Snapshot) ResolveAgents(names []string) []int {
	byName := make(map[string]int, len(s.Agents))
	for _, a := range s.Agents {
		byName[a.Name] = a.Ref
	}
	refs := make([]int, 0, len(names))
	for _, name := range names {
		if ref, ok := byName[name]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
