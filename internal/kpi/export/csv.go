// Package export serialises computed KPI tables to CSV and XLSX for the
// dashboard's download buttons.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/laminex-bi/laminex-bi/internal/billing"
	"github.com/laminex-bi/laminex-bi/internal/kpi"
	"github.com/laminex-bi/laminex-bi/internal/salestrend"
	"github.com/laminex-bi/laminex-bi/internal/stockval"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WritePivotCSV emits a pivot with its row label, bucket/class columns,
// and 0-filled cells.
func WritePivotCSV(w io.Writer, pivot kpi.Pivot) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := append([]string{pivot.RowLabel}, pivot.Cols...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range pivot.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row)
		for _, col := range pivot.Cols {
			record = append(record, formatFloat(pivot.Cell(row, col)))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteGroupCSV emits the grouped net-billing table.
func WriteGroupCSV(w io.Writer, rows []billing.GroupRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Group", "Gross", "Gross KG", "Credit", "Credit KG", "Net", "Net KG", "Avg Price/KG"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Key,
			formatFloat(row.Gross),
			formatFloat(row.GrossWeight),
			formatFloat(row.Credit),
			formatFloat(row.CreditWeight),
			formatFloat(row.Net),
			formatFloat(row.NetWeight),
			formatFloat(row.AvgPricePerKg),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOrderBookCSV emits the order-book drill-down table.
func WriteOrderBookCSV(w io.Writer, rows []salestrend.OrderLineDetail) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Order", "Client", "Agent", "Product", "Class", "Fulfillment", "Delivery", "Qty", "Outstanding", "Amount", "KG", "Price/KG"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.OrderID,
			row.ClientName,
			row.AgentName,
			row.ProductRef,
			row.ClassCode,
			row.Fulfillment,
			row.DeliveryDate.Format("2006-01-02"),
			formatFloat(row.Qty),
			formatFloat(row.Outstanding),
			formatFloat(row.Money),
			formatFloat(row.Weight),
			formatFloat(row.PricePerKg),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteValuationCSV emits the inventory valuation table.
func WriteValuationCSV(w io.Writer, rows []stockval.ValuationRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Sub-Class", "KG", "Value", "Min Cost", "Max Cost", "Avg Cost"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.SubClass,
			formatFloat(row.Weight),
			formatFloat(row.Value),
			formatFloat(row.MinCost),
			formatFloat(row.MaxCost),
			formatFloat(row.AvgCost),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
