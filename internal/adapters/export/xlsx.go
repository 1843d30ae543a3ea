// Package export writes host booking reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"homestay_hub/internal/domain"
)

const sheetName = "Bookings"

var bookingHeader = []string{
	"Reference", "Homestay", "Room", "Guest", "Check-in", "Check-out",
	"Nights", "Guests", "Status", "Subtotal", "Discount", "Total",
}

type XLSX struct{}

var _ domain.BookingExporter = XLSX{}

func (XLSX) BookingsXLSX(rows []domain.BookingRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &bookingHeader); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(bookingHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	// money cells carry the exact decimal text as a number, shown with cents
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}
	firstMoney := len(bookingHeader) - 2
	for i, r := range rows {
		b := r.Booking
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		vals := []any{
			b.Reference, r.Homestay, r.Room, r.GuestName,
			b.CheckIn.Format("2006-01-02"), b.CheckOut.Format("2006-01-02"),
			b.Nights, b.Guests, string(b.Status),
		}
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return nil, err
		}
		for j, amt := range []decimal.Decimal{b.Subtotal, b.DiscountAmount, b.Total} {
			mc, _ := excelize.CoordinatesToCellName(firstMoney+j, row)
			if err := f.SetCellDefault(sheetName, mc, amt.StringFixed(2)); err != nil {
				return nil, err
			}
		}
	}
	if len(rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(firstMoney, 2)
		to, _ := excelize.CoordinatesToCellName(len(bookingHeader), len(rows)+1)
		if err := f.SetCellStyle(sheetName, from, to, moneyStyle); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetName, "A", "D", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
