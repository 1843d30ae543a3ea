package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type HomestayRepository interface {
	CreateHomestay(ctx context.Context, h *Homestay) error
	UpdateHomestay(ctx context.Context, h Homestay) error
	GetHomestay(ctx context.Context, id int64) (Homestay, error)
	ListHomestays(ctx context.Context, q HomestaysQuery) (HomestaysPage, error)
	DraftByHost(ctx context.Context, hostID int64) (Homestay, error)
	SetFeatured(ctx context.Context, ids []int64) error
	ListFeatured(ctx context.Context) ([]Homestay, error)
	AssignCommunity(ctx context.Context, communityID int64, homestayIDs []int64) error

	ReplaceRooms(ctx context.Context, homestayID int64, rooms []Room) error
	CreateRoom(ctx context.Context, r *Room) error
	UpdateRoom(ctx context.Context, r Room) error
	DeleteRoom(ctx context.Context, id int64) error
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context, homestayID int64) ([]Room, error)
}

type BookingRepository interface {
	// CreateBooking inserts b if the room still has inventory for the stay and,
	// when b.DiscountCode is set, consumes that code in the same transaction.
	CreateBooking(ctx context.Context, b *Booking, roomQuantity int) error
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) (BookingsPage, error)
	// UpdateBookingStatus moves a booking from one status to another; ErrConflict if
	// the stored status is no longer from.
	UpdateBookingStatus(ctx context.Context, id int64, from, to BookingStatus, reason *string) error
	HasFutureBookings(ctx context.Context, roomID int64, from time.Time) (bool, error)
	HomestaysWithOpenBookings(ctx context.Context) ([]int64, error)
	HostSummary(ctx context.Context, hostID int64, now time.Time) (HostSummary, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, r *Review) error
	// CreateRewardedReview stores r and, when d is non-nil, the discount
	// code earned by it, atomically.
	CreateRewardedReview(ctx context.Context, r *Review, d *DiscountCode) error
	GetReview(ctx context.Context, id int64) (Review, error)
	ListReviews(ctx context.Context, homestayID int64, pg PageQuery) (ReviewsPage, error)
	ListHostReviews(ctx context.Context, hostID int64, pg Page) (ReviewsPage, error)
	ReplyToReview(ctx context.Context, id int64, reply string) error
	ReviewForBooking(ctx context.Context, bookingID int64) (bool, error)
	ReviewForCampaign(ctx context.Context, campaignID, guestID int64) (bool, error)
	RatingSummary(ctx context.Context, homestayID int64) (RatingSummary, error)
}

type CampaignRepository interface {
	CreateCampaign(ctx context.Context, c *Campaign, codes []string) error
	GetCampaign(ctx context.Context, id int64) (Campaign, error)
	ListCampaigns(ctx context.Context, pg Page) ([]Campaign, error)
	DeactivateCampaign(ctx context.Context, id int64) error
	AddQRCodes(ctx context.Context, campaignID int64, codes []string) error
	ListQRCodes(ctx context.Context, campaignID int64) ([]QRCode, error)
	GetQRCode(ctx context.Context, code string) (QRCode, error)
	IncrementScan(ctx context.Context, code string) error
	IncrementSubmission(ctx context.Context, code string) error

	CreateDiscountCode(ctx context.Context, d DiscountCode) error
	GetDiscountCode(ctx context.Context, code string) (DiscountCode, error)
}

type BlogRepository interface {
	CreateBlog(ctx context.Context, b *Blog) error
	UpdateBlog(ctx context.Context, b Blog) error
	DeleteBlog(ctx context.Context, id int64) error
	GetBlog(ctx context.Context, id int64) (Blog, error)
	GetBlogBySlug(ctx context.Context, slug string) (Blog, error)
	ListBlogs(ctx context.Context, f BlogFilter) ([]Blog, error)
	SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error)
}

type CommunityRepository interface {
	CreateCommunity(ctx context.Context, c *Community) error
	UpdateCommunity(ctx context.Context, c Community) error
	DeleteCommunity(ctx context.Context, id int64) error
	GetCommunity(ctx context.Context, id int64) (Community, error)
	GetCommunityBySlug(ctx context.Context, slug string) (Community, error)
	ListCommunities(ctx context.Context) ([]Community, error)

	CreateManager(ctx context.Context, m *CommunityManager) error
	UpdateManager(ctx context.Context, m CommunityManager) error
	DeleteManager(ctx context.Context, id int64) error
	GetManager(ctx context.Context, id int64) (CommunityManager, error)
	ListManagers(ctx context.Context) ([]CommunityManager, error)
}

type MasterDataRepository interface {
	CreateMaster(ctx context.Context, it *MasterItem) error
	UpdateMaster(ctx context.Context, it MasterItem) error
	// DeleteMaster fails with ErrConflict while homestays reference the row.
	DeleteMaster(ctx context.Context, kind MasterKind, id int64) error
	GetMaster(ctx context.Context, kind MasterKind, id int64) (MasterItem, error)
	GetDestinationBySlug(ctx context.Context, slug string) (MasterItem, error)
	ListMaster(ctx context.Context, kind MasterKind) ([]MasterItem, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByPhone(ctx context.Context, phone string) (User, error)
	SetRole(ctx context.Context, id int64, role Role) error
}

// Store bundles every repository; both storage backends implement it.
type Store interface {
	HomestayRepository
	BookingRepository
	ReviewRepository
	CampaignRepository
	BlogRepository
	CommunityRepository
	MasterDataRepository
	UserRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Challenge is a pending one-time-code login for a phone number.
type Challenge struct {
	Phone    string `json:"phone"`
	Secret   string `json:"secret"`
	QRCode   string `json:"qr_code,omitempty"`
	Attempts int    `json:"attempts"`
}

type ChallengeStore interface {
	SaveChallenge(ctx context.Context, c Challenge, ttl time.Duration) error
	GetChallenge(ctx context.Context, phone string) (Challenge, bool, error)
	DeleteChallenge(ctx context.Context, phone string) error
}

type Notifier interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// Read models & queries
type HomestayView struct {
	ID           int64
	Name         string
	Slug         string
	Description  string
	City         string
	Address      string
	Coords       *Coords
	Destination  string
	PropertyType string
	Amenities    []string
	Images       []string
	Rooms        []Room
	Rating       RatingSummary
	FromPrice    *decimal.Decimal
	Status       HomestayStatus
}

type Coords struct{ Lat, Lon float64 }

type HomestaysQuery struct {
	Status        *HomestayStatus
	HostID        *int64
	DestinationID *int64
	CommunityID   *int64
	Q             string
	Guests        int
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Page          Page
}

type Page struct {
	Number int // 1-based
	Limit  int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

type PageQuery struct {
	Limit  int
	Cursor *string
	Sort   string
}

type HomestaysPage struct {
	Items []Homestay
	Total int
}

type ReviewsPage struct {
	Items      []Review
	NextCursor *string
}

type QRRenderer interface {
	PNG(content string, size int) ([]byte, error)
}

// BookingRow is a booking flattened for spreadsheets and receipts.
type BookingRow struct {
	Booking   Booking
	Homestay  string
	Room      string
	GuestName string
}

type BookingExporter interface {
	BookingsXLSX(rows []BookingRow) ([]byte, error)
}
