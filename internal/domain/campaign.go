package domain

import "time"

type Campaign struct {
	ID              int64
	Name            string
	HomestayID      int64
	DiscountPercent int
	ValidUntil      *time.Time
	Active          bool
	CreatedBy       int64
	CreatedAt       time.Time
}

// Live reports whether the campaign still accepts reviews at now.
func (c Campaign) Live(now time.Time) bool {
	if !c.Active {
		return false
	}
	return c.ValidUntil == nil || now.Before(*c.ValidUntil)
}

func (c Campaign) Rewards() bool { return c.DiscountPercent > 0 }

type QRCode struct {
	Code        string
	CampaignID  int64
	Scans       int
	Submissions int
	CreatedAt   time.Time
}

type DiscountCode struct {
	Code       string
	GuestID    int64
	CampaignID int64
	Percent    int
	ExpiresAt  time.Time
	UsedAt     *time.Time
}

func (d DiscountCode) Usable(guestID int64, now time.Time) bool {
	return d.UsedAt == nil && d.GuestID == guestID && now.Before(d.ExpiresAt)
}
