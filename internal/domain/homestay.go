package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type HomestayStatus string

const (
	HomestayDraft     HomestayStatus = "draft"
	HomestayPending   HomestayStatus = "pending"
	HomestayApproved  HomestayStatus = "approved"
	HomestayRejected  HomestayStatus = "rejected"
	HomestaySuspended HomestayStatus = "suspended"
)

func ParseHomestayStatus(s string) (HomestayStatus, bool) {
	st := HomestayStatus(s)
	switch st {
	case HomestayDraft, HomestayPending, HomestayApproved, HomestayRejected, HomestaySuspended:
		return st, true
	}
	return "", false
}

type Homestay struct {
	ID              int64
	HostID          int64
	Name            string
	Slug            string
	Description     string
	PropertyTypeID  int64
	DestinationID   int64
	CommunityID     *int64
	Address         string
	City            string
	Lat, Lon        *float64
	AmenityIDs      []int64
	Images          []string
	Status          HomestayStatus
	RejectionReason *string
	FeaturedRank    *int
	OnboardingStep  int // last completed wizard step, 0..4
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Room struct {
	ID            int64
	HomestayID    int64
	Name          string
	Capacity      int
	PricePerNight decimal.Decimal
	Quantity      int
	Active        bool
}

// CanModerate reports whether an admin may move the homestay to next.
func (h Homestay) CanModerate(next HomestayStatus) bool {
	switch next {
	case HomestayApproved:
		return h.Status == HomestayPending || h.Status == HomestayRejected || h.Status == HomestaySuspended
	case HomestayRejected:
		return h.Status == HomestayPending
	case HomestaySuspended:
		return h.Status == HomestayApproved
	}
	return false
}

// Public homestays are the only ones guests may browse or book.
func (h Homestay) Public() bool { return h.Status == HomestayApproved }
