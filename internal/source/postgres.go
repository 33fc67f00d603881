package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider reads the replicated legacy tables from PostgreSQL.
// The nightly sync lands each DBF table in the laminex schema with typed
// columns; this provider only selects, it owns no schema.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

var _ Provider = (*PostgresProvider)(nil)

// NewPostgresProvider constructs a provider over an existing pool.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// describePGError folds PostgreSQL error detail into the message so a
// FetchError carries the failing relation and code.
func describePGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (code %s, table %s)", pgErr.Message, pgErr.Code, pgErr.TableName)
	}
	return err
}

// timeOrZero maps a NULL timestamp to the zero time, which the engines
// read as "no date" when resolving delivery-date fallbacks.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func query[R any](ctx context.Context, p *PostgresProvider, sql string, scan func(pgx.Rows) (R, error)) ([]R, error) {
	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, describePGError(err)
	}
	defer rows.Close()

	var out []R
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, describePGError(err)
	}
	return out, nil
}

// Invoices reads billing headers.
func (p *PostgresProvider) Invoices(ctx context.Context) ([]Invoice, error) {
	const sql = `
		SELECT id, client_ref, agent_ref, issue_date, due_date, status,
		       currency_flag, exchange_rate, subtotal, discount, total, balance
		FROM laminex.invoices`
	return query(ctx, p, sql, func(rows pgx.Rows) (Invoice, error) {
		var v Invoice
		err := rows.Scan(&v.ID, &v.ClientRef, &v.AgentRef, &v.IssueDate, &v.DueDate,
			&v.Status, &v.CurrencyFlag, &v.ExchangeRate, &v.Subtotal, &v.Discount,
			&v.Total, &v.Balance)
		return v, err
	})
}

// InvoiceLines reads billing detail lines.
func (p *PostgresProvider) InvoiceLines(ctx context.Context) ([]InvoiceLine, error) {
	const sql = `
		SELECT invoice_id, product_ref, class_code, unit_price, qty_delivered,
		       subtotal, discount
		FROM laminex.invoice_lines`
	return query(ctx, p, sql, func(rows pgx.Rows) (InvoiceLine, error) {
		var v InvoiceLine
		err := rows.Scan(&v.InvoiceID, &v.ProductRef, &v.ClassCode, &v.UnitPrice,
			&v.QtyDelivered, &v.Subtotal, &v.Discount)
		return v, err
	})
}

// CreditNotes reads credit headers.
func (p *PostgresProvider) CreditNotes(ctx context.Context) ([]CreditNote, error) {
	const sql = `
		SELECT id, kind, doc_class, note_date, client_ref, agent_ref, status,
		       COALESCE(linked_invoice_id, ''), currency_flag, exchange_rate, subtotal
		FROM laminex.credit_notes`
	return query(ctx, p, sql, func(rows pgx.Rows) (CreditNote, error) {
		var v CreditNote
		err := rows.Scan(&v.ID, &v.Kind, &v.DocClass, &v.Date, &v.ClientRef,
			&v.AgentRef, &v.Status, &v.LinkedInvoiceID, &v.CurrencyFlag,
			&v.ExchangeRate, &v.Subtotal)
		return v, err
	})
}

// CreditNoteLines reads credit detail lines.
func (p *PostgresProvider) CreditNoteLines(ctx context.Context) ([]CreditNoteLine, error) {
	const sql = `
		SELECT note_id, product_ref, qty, unit_value, total, unit
		FROM laminex.credit_note_lines`
	return query(ctx, p, sql, func(rows pgx.Rows) (CreditNoteLine, error) {
		var v CreditNoteLine
		err := rows.Scan(&v.NoteID, &v.ProductRef, &v.Qty, &v.UnitValue, &v.Total, &v.Unit)
		return v, err
	})
}

// SalesOrders reads order headers.
func (p *PostgresProvider) SalesOrders(ctx context.Context) ([]SalesOrder, error) {
	const sql = `
		SELECT id, client_ref, agent_ref, created_at, delivery_date, status,
		       currency_flag, exchange_rate
		FROM laminex.sales_orders`
	return query(ctx, p, sql, func(rows pgx.Rows) (SalesOrder, error) {
		var v SalesOrder
		err := rows.Scan(&v.ID, &v.ClientRef, &v.AgentRef, &v.CreatedAt,
			&v.DeliveryDate, &v.Status, &v.CurrencyFlag, &v.ExchangeRate)
		return v, err
	})
}

// SalesOrderLines reads order detail lines.
func (p *PostgresProvider) SalesOrderLines(ctx context.Context) ([]SalesOrderLine, error) {
	const sql = `
		SELECT order_id, product_ref, class_code, qty, unit_price,
		       delivery_date, fulfillment, outstanding
		FROM laminex.sales_order_lines`
	return query(ctx, p, sql, func(rows pgx.Rows) (SalesOrderLine, error) {
		var v SalesOrderLine
		var delivery *time.Time
		err := rows.Scan(&v.OrderID, &v.ProductRef, &v.ClassCode, &v.Qty,
			&v.UnitPrice, &delivery, &v.Fulfillment, &v.Outstanding)
		v.DeliveryDate = timeOrZero(delivery)
		return v, err
	})
}

// PurchaseOrders reads purchase headers.
func (p *PostgresProvider) PurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	const sql = `
		SELECT id, created_at, delivery_date, status, currency_flag,
		       exchange_rate, location
		FROM laminex.purchase_orders`
	return query(ctx, p, sql, func(rows pgx.Rows) (PurchaseOrder, error) {
		var v PurchaseOrder
		err := rows.Scan(&v.ID, &v.CreatedAt, &v.DeliveryDate, &v.Status,
			&v.CurrencyFlag, &v.ExchangeRate, &v.Location)
		return v, err
	})
}

// PurchaseOrderLines reads purchase detail lines.
func (p *PostgresProvider) PurchaseOrderLines(ctx context.Context) ([]PurchaseOrderLine, error) {
	const sql = `
		SELECT order_id, supplier_ref, product_ref, class_code, qty, unit_price,
		       delivery_date, fulfillment, outstanding, unit
		FROM laminex.purchase_order_lines`
	return query(ctx, p, sql, func(rows pgx.Rows) (PurchaseOrderLine, error) {
		var v PurchaseOrderLine
		var delivery *time.Time
		err := rows.Scan(&v.OrderID, &v.SupplierRef, &v.ProductRef, &v.ClassCode,
			&v.Qty, &v.UnitPrice, &delivery, &v.Fulfillment, &v.Outstanding,
			&v.Unit)
		v.DeliveryDate = timeOrZero(delivery)
		return v, err
	})
}

// SupplierInvoices reads payable headers.
func (p *PostgresProvider) SupplierInvoices(ctx context.Context) ([]SupplierInvoice, error) {
	const sql = `
		SELECT id, supplier_ref, status, balance, due_date, currency_flag,
		       exchange_rate
		FROM laminex.supplier_invoices`
	return query(ctx, p, sql, func(rows pgx.Rows) (SupplierInvoice, error) {
		var v SupplierInvoice
		err := rows.Scan(&v.ID, &v.SupplierRef, &v.Status, &v.Balance, &v.DueDate,
			&v.CurrencyFlag, &v.ExchangeRate)
		return v, err
	})
}

// StockPositions reads stock on hand, skipping zero-quantity rows.
func (p *PostgresProvider) StockPositions(ctx context.Context) ([]StockPosition, error) {
	const sql = `
		SELECT product_ref, location, qty, avg_cost, fifo_cost, last_movement,
		       lot, lot_date
		FROM laminex.stock_positions
		WHERE qty <> 0`
	return query(ctx, p, sql, func(rows pgx.Rows) (StockPosition, error) {
		var v StockPosition
		err := rows.Scan(&v.ProductRef, &v.Location, &v.Qty, &v.AvgCost,
			&v.FIFOCost, &v.LastMovement, &v.Lot, &v.LotDate)
		return v, err
	})
}

// ProductionResults reads executed production order lines.
func (p *PostgresProvider) ProductionResults(ctx context.Context) ([]ProductionResult, error) {
	const sql = `
		SELECT order_ref, product_ref, result_date, qty, unit_cost, status
		FROM laminex.production_results`
	return query(ctx, p, sql, func(rows pgx.Rows) (ProductionResult, error) {
		var v ProductionResult
		err := rows.Scan(&v.OrderRef, &v.ProductRef, &v.Date, &v.Qty, &v.UnitCost,
			&v.Status)
		return v, err
	})
}

// Products reads the product master.
func (p *PostgresProvider) Products(ctx context.Context) ([]Product, error) {
	const sql = `
		SELECT ref, description, class_code, sub_class, sub_sub_class, unit,
		       weight_factor
		FROM laminex.products`
	return query(ctx, p, sql, func(rows pgx.Rows) (Product, error) {
		var v Product
		err := rows.Scan(&v.Ref, &v.Description, &v.ClassCode, &v.SubClass,
			&v.SubSubClass, &v.Unit, &v.WeightFactor)
		return v, err
	})
}

// Clients reads the client master.
func (p *PostgresProvider) Clients(ctx context.Context) ([]Client, error) {
	const sql = `SELECT ref, name FROM laminex.clients`
	return query(ctx, p, sql, func(rows pgx.Rows) (Client, error) {
		var v Client
		err := rows.Scan(&v.Ref, &v.Name)
		return v, err
	})
}

// Suppliers reads the supplier master.
func (p *PostgresProvider) Suppliers(ctx context.Context) ([]Supplier, error) {
	const sql = `SELECT ref, name FROM laminex.suppliers`
	return query(ctx, p, sql, func(rows pgx.Rows) (Supplier, error) {
		var v Supplier
		err := rows.Scan(&v.Ref, &v.Name)
		return v, err
	})
}

// Agents reads the agent master.
func (p *PostgresProvider) Agents(ctx context.Context) ([]Agent, error) {
	const sql = `SELECT ref, name, area, email FROM laminex.agents`
	return query(ctx, p, sql, func(rows pgx.Rows) (Agent, error) {
		var v Agent
		err := rows.Scan(&v.Ref, &v.Name, &v.Area, &v.Email)
		return v, err
	})
}
