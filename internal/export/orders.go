// Package export renders orders as an xlsx workbook for the back office.
package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"

	"github.com/flicky/storefront/internal/model"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

var (
	orderHeaders = []string{"Order ID", "Created", "Customer", "Address", "Phone", "Status", "Items", "Total"}
	itemHeaders  = []string{"Order ID", "Product", "Quantity", "Price", "Total"}
)

// Orders builds a workbook with one sheet of orders and one of their items.
func Orders(orders []model.Order) (*xlsx.File, error) {
	file := xlsx.NewFile()
	orderSheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, fmt.Errorf("add orders sheet: %w", err)
	}
	itemSheet, err := file.AddSheet("Items")
	if err != nil {
		return nil, fmt.Errorf("add items sheet: %w", err)
	}

	addHeader(orderSheet, orderHeaders)
	addHeader(itemSheet, itemHeaders)

	for _, o := range orders {
		row := orderSheet.AddRow()
		row.AddCell().SetString(o.ID.String())
		row.AddCell().SetString(o.CreatedAt.Format(timeLayout))
		row.AddCell().SetString(o.FullName)
		row.AddCell().SetString(o.Address)
		row.AddCell().SetString(o.Phone)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetInt(len(o.Items))
		row.AddCell().SetFloat(o.TotalPrice.InexactFloat64())

		for _, it := range o.Items {
			r := itemSheet.AddRow()
			r.AddCell().SetString(o.ID.String())
			r.AddCell().SetString(it.ProductName)
			r.AddCell().SetInt(it.Quantity)
			r.AddCell().SetFloat(it.Price.InexactFloat64())
			r.AddCell().SetFloat(it.Total().InexactFloat64())
		}
	}
	return file, nil
}

// WriteOrders writes the workbook built by Orders to w.
func WriteOrders(w io.Writer, orders []model.Order) error {
	file, err := Orders(orders)
	if err != nil {
		return err
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetString(h)
	}
}
