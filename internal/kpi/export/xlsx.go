package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/laminex-bi/laminex-bi/internal/billing"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/salestrend"
	"github.com/laminex-bi/laminex-bi/internal/stockval"
)

// Workbook assembles a multi-sheet XLSX download. Sheets are added in
// call order; the first added sheet becomes the active one.
type Workbook struct {
	file  *excelize.File
	count int
	err   error
}

// NewWorkbook opens an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

func (wb *Workbook) sheet(name string) string {
	if wb.count == 0 {
		def := wb.file.GetSheetName(wb.file.GetActiveSheetIndex())
		if wb.err == nil {
			wb.err = wb.file.SetSheetName(def, name)
		}
	} else if wb.err == nil {
		_, wb.err = wb.file.NewSheet(name)
	}
	wb.count++
	return name
}

func (wb *Workbook) writeRow(sheet string, row int, values []interface{}) {
	if wb.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		wb.err = err
		return
	}
	wb.err = wb.file.SetSheetRow(sheet, cell, &values)
}

// SummaryEntry is one headline figure on the summary sheet, already
// formatted for display.
type SummaryEntry struct {
	Label string
	Value string
}

// AddSummarySheet writes headline figures as a label/value sheet.
func (wb *Workbook) AddSummarySheet(name string, entries []SummaryEntry) *Workbook {
	sheet := wb.sheet(name)
	wb.writeRow(sheet, 1, []interface{}{"Indicador", "Valor"})
	for i, entry := range entries {
		wb.writeRow(sheet, i+2, []interface{}{entry.Label, entry.Value})
	}
	return wb
}

// AddPivotSheet writes a pivot as one sheet.
func (wb *Workbook) AddPivotSheet(name string, pivot kpi.Pivot) *Workbook {
	sheet := wb.sheet(name)

	header := make([]interface{}, 0, len(pivot.Cols)+1)
	header = append(header, pivot.RowLabel)
	for _, col := range pivot.Cols {
		header = append(header, col)
	}
	wb.writeRow(sheet, 1, header)

	for i, row := range pivot.Rows {
		record := make([]interface{}, 0, len(pivot.Cols)+1)
		record = append(record, row)
		for _, col := range pivot.Cols {
			record = append(record, pivot.Cell(row, col))
		}
		wb.writeRow(sheet, i+2, record)
	}
	return wb
}

// AddGroupSheet writes the grouped net-billing table as one sheet.
func (wb *Workbook) AddGroupSheet(name string, rows []billing.GroupRow) *Workbook {
	sheet := wb.sheet(name)
	wb.writeRow(sheet, 1, []interface{}{
		"Group", "Gross", "Gross KG", "Credit", "Credit KG", "Net", "Net KG", "Avg Price/KG"})
	for i, row := range rows {
		wb.writeRow(sheet, i+2, []interface{}{
			row.Key, row.Gross, row.GrossWeight, row.Credit, row.CreditWeight,
			row.Net, row.NetWeight, row.AvgPricePerKg})
	}
	return wb
}

// AddOrderBookSheet writes the order-book detail as one sheet.
func (wb *Workbook) AddOrderBookSheet(name string, rows []salestrend.OrderLineDetail) *Workbook {
	sheet := wb.sheet(name)
	wb.writeRow(sheet, 1, []interface{}{
		"Order", "Client", "Agent", "Product", "Class", "Fulfillment", "Delivery",
		"Qty", "Outstanding", "Amount", "KG", "Price/KG"})
	for i, row := range rows {
		wb.writeRow(sheet, i+2, []interface{}{
			row.OrderID, row.ClientName, row.AgentName, row.ProductRef, row.ClassCode,
			row.Fulfillment, row.DeliveryDate.Format("2006-01-02"),
			row.Qty, row.Outstanding, row.Money, row.Weight, row.PricePerKg})
	}
	return wb
}

// AddValuationSheet writes the inventory valuation as one sheet.
func (wb *Workbook) AddValuationSheet(name string, rows []stockval.ValuationRow) *Workbook {
	sheet := wb.sheet(name)
	wb.writeRow(sheet, 1, []interface{}{
		"Sub-Class", "KG", "Value", "Min Cost", "Max Cost", "Avg Cost"})
	for i, row := range rows {
		wb.writeRow(sheet, i+2, []interface{}{
			row.SubClass, row.Weight, row.Value, row.MinCost, row.MaxCost, row.AvgCost})
	}
	return wb
}

// WriteTo streams the workbook and closes it.
func (wb *Workbook) WriteTo(w io.Writer) error {
	defer func() { _ = wb.file.Close() }()
	if wb.err != nil {
		return fmt.Errorf("export: build workbook: %w", wb.err)
	}
	if wb.count == 0 {
		return fmt.Errorf("export: workbook has no sheets")
	}
	return wb.file.Write(w)
}
