// Package export renders order listings as spreadsheets for back-office use.
package export

import (
	"fmt"
	"io"
	"strings"

	"storefront/internal/models"

	"github.com/tealeg/xlsx"
)

// ContentType is the MIME type of the workbooks written by this package.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var orderHeaders = []string{
	"ID", "Ref", "Date", "Customer", "Email", "Phone", "City", "Status", "Payment", "Items", "Total",
}

// WriteOrders writes orders as an XLSX workbook with a single "Orders" sheet.
func WriteOrders(w io.Writer, orders []models.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range orderHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetInt64(int64(o.ID))
		row.AddCell().SetValue(o.OrderRef)
		row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(o.DeliveryInfo.Name)
		row.AddCell().SetValue(o.DeliveryInfo.Email)
		row.AddCell().SetValue(o.DeliveryInfo.Phone)
		row.AddCell().SetValue(o.DeliveryInfo.City)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(o.PaymentMethod)
		row.AddCell().SetValue(itemSummary(o.Items))
		row.AddCell().SetFloatWithFormat(o.Total.InexactFloat64(), "0.00")
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// itemSummary renders items as "Basic Tee (M) x2, Dad Cap x1".
func itemSummary(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := item.ProductName
		if item.Size != "" {
			name += " (" + item.Size + ")"
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}
