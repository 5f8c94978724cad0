package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/judithshaven/storefront/internal/models"
)

// Table is a flat export of one entity list, consumed by the CSV and XLSX
// writers.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, t.Name); err != nil {
		return err
	}

	cell, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(t.Name, cell, &t.Headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func OrdersTable(orders []models.Order) Table {
	t := Table{
		Name:    "orders",
		Headers: []string{"id", "user_id", "status", "items_price", "shipping_price", "tax_price", "discount", "total_price", "is_paid", "is_delivered", "tracking_number", "created_at"},
	}
	for _, o := range orders {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(int(o.ID)),
			strconv.Itoa(int(o.UserID)),
			o.Status,
			money(o.ItemsPrice),
			money(o.ShippingPrice),
			money(o.TaxPrice),
			money(o.Discount),
			money(o.TotalPrice),
			strconv.FormatBool(o.IsPaid),
			strconv.FormatBool(o.IsDelivered),
			o.TrackingNumber,
			timestamp(o.CreatedAt),
		})
	}
	return t
}

func ProductsTable(products []models.Product) Table {
	t := Table{
		Name:    "products",
		Headers: []string{"id", "name", "brand", "category_id", "price", "discount", "count_in_stock", "rating", "num_reviews"},
	}
	for _, p := range products {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(int(p.ID)),
			p.Name,
			p.Brand,
			strconv.Itoa(int(p.CategoryID)),
			money(p.Price),
			money(p.Discount),
			strconv.Itoa(int(p.Count)),
			fmt.Sprintf("%.1f", p.Rating),
			strconv.Itoa(int(p.NumReviews)),
		})
	}
	return t
}

func UsersTable(users []models.User) Table {
	t := Table{
		Name:    "users",
		Headers: []string{"id", "username", "email", "role", "created_at"},
	}
	for _, u := range users {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(int(u.ID)),
			u.Username,
			u.Email,
			u.Role,
			timestamp(u.CreatedAt),
		})
	}
	return t
}
