package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"homestay_hub/internal/domain"
)

func TestBookingsXLSX(t *testing.T) {
	in := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.BookingRow{{
		Booking: domain.Booking{
			Reference:      "BK-1234ABCD",
			CheckIn:        in,
			CheckOut:       in.AddDate(0, 0, 2),
			Nights:         2,
			Guests:         2,
			Status:         domain.BookingConfirmed,
			Subtotal:       decimal.RequireFromString("100"),
			DiscountAmount: decimal.RequireFromString("10"),
			Total:          decimal.RequireFromString("90"),
		},
		Homestay:  "Pine Hill",
		Room:      "Double",
		GuestName: "Gia",
	}}

	b, err := XLSX{}.BookingsXLSX(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bookingHeader, got[0])
	assert.Equal(t, "BK-1234ABCD", got[1][0])
	assert.Equal(t, "Pine Hill", got[1][1])
	assert.Equal(t, "2026-07-01", got[1][4])
	assert.Equal(t, "confirmed", got[1][8])
	assert.Equal(t, "90.00", got[1][11])
}

func TestBookingsXLSX_MoneyKeepsExactCents(t *testing.T) {
	rows := []domain.BookingRow{{Booking: domain.Booking{
		Reference:      "BK-9Z8Y7X6W",
		Subtotal:       decimal.RequireFromString("1234567.89"),
		DiscountAmount: decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2")),
		Total:          decimal.RequireFromString("1234567.59"),
	}}}

	b, err := XLSX{}.BookingsXLSX(rows)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	for cell, want := range map[string]string{"J2": "1234567.89", "K2": "0.30", "L2": "1234567.59"} {
		raw, err := f.GetCellValue(sheetName, cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		assert.Equal(t, want, raw, cell)

		typ, err := f.GetCellType(sheetName, cell)
		require.NoError(t, err)
		assert.NotEqual(t, excelize.CellTypeSharedString, typ, cell)
		assert.NotEqual(t, excelize.CellTypeInlineString, typ, cell)
	}
}
