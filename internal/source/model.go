// Package source defines the record-table provider boundary: the typed rows
// of the legacy master/detail tables and the snapshot the engine computes
// from. Rows are read-only for the duration of one query; the engine never
// writes back.
package source

import "time"

// Header statuses shared across invoices, orders, and credit notes.
const (
	StatusCancelled = "Cancelled"
	StatusPaid      = "Paid"
)

// Credit note kinds as recorded on the header.
const (
	NoteKindReturn   = "Return"
	NoteKindDiscount = "Discount"
)

// Credit note document classes that participate in billing; other classes
// are bookkeeping artifacts.
const (
	DocClassCredit = "D"
	DocClassNote   = "N"
)

// Line fulfillment states.
const (
	FulfillmentOpen      = "Open"
	FulfillmentPartial   = "Partial"
	FulfillmentFulfilled = "Fulfilled"
)

// Invoice is a billing header. ID is the legacy series+number composite.
type Invoice struct {
	ID           string
	ClientRef    int
	AgentRef     int
	IssueDate    time.Time
	DueDate      time.Time
	Status       string
	CurrencyFlag int
	ExchangeRate float64
	Subtotal     float64
	Discount     float64
	Total        float64
	Balance      float64
}

// InvoiceLine is a billed product line.
type InvoiceLine struct {
	InvoiceID    string
	ProductRef   string
	ClassCode    string
	UnitPrice    float64
	QtyDelivered float64
	Subtotal     float64
	Discount     float64
}

// CreditNote is a credit header (return, discount, or advance application).
type CreditNote struct {
	ID              string
	Kind            string
	DocClass        string
	Date            time.Time
	ClientRef       int
	AgentRef        int
	Status          string
	LinkedInvoiceID string
	CurrencyFlag    int
	ExchangeRate    float64
	Subtotal        float64
}

// CreditNoteLine is a credited product line.
type CreditNoteLine struct {
	NoteID     string
	ProductRef string
	Qty        float64
	UnitValue  float64
	Total      float64
	Unit       string
}

// SalesOrder is an order header. DeliveryDate is the header-level fallback
// used when a line has no explicit delivery date.
type SalesOrder struct {
	ID           string
	ClientRef    int
	AgentRef     int
	CreatedAt    time.Time
	DeliveryDate time.Time
	Status       string
	CurrencyFlag int
	ExchangeRate float64
}

// SalesOrderLine is an ordered product line. Outstanding is the quantity
// not yet delivered.
type SalesOrderLine struct {
	OrderID      string
	ProductRef   string
	ClassCode    string
	Qty          float64
	UnitPrice    float64
	DeliveryDate time.Time
	Fulfillment  string
	Outstanding  float64
}

// PurchaseOrder is a supplier-side order header.
type PurchaseOrder struct {
	ID           string
	CreatedAt    time.Time
	DeliveryDate time.Time
	Status       string
	CurrencyFlag int
	ExchangeRate float64
	Location     string
}

// PurchaseOrderLine is an ordered purchase line.
type PurchaseOrderLine struct {
	OrderID      string
	SupplierRef  int
	ProductRef   string
	ClassCode    string
	Qty          float64
	UnitPrice    float64
	DeliveryDate time.Time
	Fulfillment  string
	Outstanding  float64
	Unit         string
}

// SupplierInvoice is a payable header; the engine needs no line detail.
type SupplierInvoice struct {
	ID           string
	SupplierRef  int
	Status       string
	Balance      float64
	DueDate      time.Time
	CurrencyFlag int
	ExchangeRate float64
}

// StockPosition is quantity on hand for a product at a location.
type StockPosition struct {
	ProductRef   string
	Location     string
	Qty          float64
	AvgCost      float64
	FIFOCost     float64
	LastMovement time.Time
	Lot          string
	LotDate      time.Time
}

// ProductionResult is an executed production order line.
type ProductionResult struct {
	OrderRef   string
	ProductRef string
	Date       time.Time
	Qty        float64
	UnitCost   float64
	Status     string
}

// Product is the product master row. WeightFactor converts the product
// unit to the reference weight unit; a factor of 0 is treated as 1 where
// raw-material weights are computed.
type Product struct {
	Ref          string
	Description  string
	ClassCode    string
	SubClass     string
	SubSubClass  string
	Unit         string
	WeightFactor float64
}

// Client is the client master row.
type Client struct {
	Ref  int
	Name string
}

// Supplier is the supplier master row.
type Supplier struct {
	Ref  int
	Name string
}

// Agent is the sales agent master row.
type Agent struct {
	Ref   int
	Name  string
	Area  string
	Email string
}
