package domain

import "time"

type ReviewSource string

const (
	ReviewFromBooking ReviewSource = "booking"
	ReviewFromQR      ReviewSource = "qr"
)

type Review struct {
	ID         int64
	HomestayID int64
	BookingID  *int64
	GuestID    int64
	GuestName  string
	CampaignID *int64
	Rating     int // 1..5
	Comment    string
	HostReply  *string
	Source     ReviewSource
	CreatedAt  time.Time
}

type RatingSummary struct {
	Count   int
	Average float64
}
