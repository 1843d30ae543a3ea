package httpserver

import (
	"time"

	"github.com/shopspring/decimal"

	"homestay_hub/internal/app"
	"homestay_hub/internal/auth"
	"homestay_hub/internal/domain"
)

// mapSlice never returns nil so empty lists encode as [].
func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

type userJSON struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUser(u domain.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

type sessionJSON struct {
	auth.Token
	User      userJSON `json:"user"`
	IsNewUser bool     `json:"is_new_user"`
	QRCode    string   `json:"qr_code,omitempty"`
}

func toSession(s app.Session) sessionJSON {
	return sessionJSON{Token: s.Token, User: toUser(s.User), IsNewUser: s.IsNewUser, QRCode: s.QRCode}
}

type roomJSON struct {
	ID            int64           `json:"id"`
	HomestayID    int64           `json:"homestay_id"`
	Name          string          `json:"name"`
	Capacity      int             `json:"capacity"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	Quantity      int             `json:"quantity"`
	Active        bool            `json:"active"`
}

func toRoom(r domain.Room) roomJSON {
	return roomJSON{
		ID: r.ID, HomestayID: r.HomestayID, Name: r.Name, Capacity: r.Capacity,
		PricePerNight: r.PricePerNight, Quantity: r.Quantity, Active: r.Active,
	}
}

type homestayJSON struct {
	ID              int64     `json:"id"`
	HostID          int64     `json:"host_id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	PropertyTypeID  int64     `json:"property_type_id"`
	DestinationID   int64     `json:"destination_id"`
	CommunityID     *int64    `json:"community_id"`
	Address         string    `json:"address"`
	City            string    `json:"city"`
	Lat             *float64  `json:"lat"`
	Lon             *float64  `json:"lon"`
	AmenityIDs      []int64   `json:"amenity_ids"`
	Images          []string  `json:"images"`
	Status          string    `json:"status"`
	RejectionReason *string   `json:"rejection_reason"`
	FeaturedRank    *int      `json:"featured_rank"`
	OnboardingStep  int       `json:"onboarding_step"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toHomestay(h domain.Homestay) homestayJSON {
	out := homestayJSON{
		ID: h.ID, HostID: h.HostID, Name: h.Name, Slug: h.Slug, Description: h.Description,
		PropertyTypeID: h.PropertyTypeID, DestinationID: h.DestinationID, CommunityID: h.CommunityID,
		Address: h.Address, City: h.City, Lat: h.Lat, Lon: h.Lon,
		AmenityIDs: h.AmenityIDs, Images: h.Images, Status: string(h.Status),
		RejectionReason: h.RejectionReason, FeaturedRank: h.FeaturedRank, OnboardingStep: h.OnboardingStep,
		CreatedAt: h.CreatedAt, UpdatedAt: h.UpdatedAt,
	}
	if out.AmenityIDs == nil {
		out.AmenityIDs = []int64{}
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	return out
}

type homestayDetailJSON struct {
	homestayJSON
	Rooms []roomJSON `json:"rooms"`
}

func toHomestayDetail(d app.HomestayDetail) homestayDetailJSON {
	return homestayDetailJSON{homestayJSON: toHomestay(d.Homestay), Rooms: mapSlice(d.Rooms, toRoom)}
}

type ratingJSON struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

func toRating(r domain.RatingSummary) ratingJSON {
	return ratingJSON{Count: r.Count, Average: r.Average}
}

type coordsJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type homestayViewJSON struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	City         string           `json:"city"`
	Address      string           `json:"address"`
	Coords       *coordsJSON      `json:"coords,omitempty"`
	Destination  string           `json:"destination"`
	PropertyType string           `json:"property_type"`
	Amenities    []string         `json:"amenities"`
	Images       []string         `json:"images"`
	Rooms        []roomJSON       `json:"rooms,omitempty"`
	Rating       ratingJSON       `json:"rating"`
	FromPrice    *decimal.Decimal `json:"from_price"`
}

func toView(v domain.HomestayView) homestayViewJSON {
	out := homestayViewJSON{
		ID: v.ID, Name: v.Name, Slug: v.Slug, Description: v.Description, City: v.City,
		Address: v.Address, Destination: v.Destination, PropertyType: v.PropertyType,
		Amenities: v.Amenities, Images: v.Images, Rating: toRating(v.Rating), FromPrice: v.FromPrice,
	}
	if v.Coords != nil {
		out.Coords = &coordsJSON{Lat: v.Coords.Lat, Lon: v.Coords.Lon}
	}
	if out.Amenities == nil {
		out.Amenities = []string{}
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	if len(v.Rooms) > 0 {
		out.Rooms = mapSlice(v.Rooms, toRoom)
	}
	return out
}

type bookingJSON struct {
	ID             int64           `json:"id"`
	Reference      string          `json:"reference"`
	GuestID        int64           `json:"guest_id"`
	HomestayID     int64           `json:"homestay_id"`
	RoomID         int64           `json:"room_id"`
	CheckIn        string          `json:"check_in"`
	CheckOut       string          `json:"check_out"`
	Guests         int             `json:"guests"`
	Nights         int             `json:"nights"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountCode   *string         `json:"discount_code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	CancelReason   *string         `json:"cancel_reason"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toBooking(b domain.Booking) bookingJSON {
	return bookingJSON{
		ID: b.ID, Reference: b.Reference, GuestID: b.GuestID, HomestayID: b.HomestayID, RoomID: b.RoomID,
		CheckIn: b.CheckIn.Format(dateLayout), CheckOut: b.CheckOut.Format(dateLayout),
		Guests: b.Guests, Nights: b.Nights, Subtotal: b.Subtotal, DiscountCode: b.DiscountCode,
		DiscountAmount: b.DiscountAmount, Total: b.Total, Status: string(b.Status),
		CancelReason: b.CancelReason, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

type bookingRowJSON struct {
	bookingJSON
	Homestay  string `json:"homestay"`
	Room      string `json:"room"`
	GuestName string `json:"guest_name"`
}

func toBookingRow(r domain.BookingRow) bookingRowJSON {
	return bookingRowJSON{bookingJSON: toBooking(r.Booking), Homestay: r.Homestay, Room: r.Room, GuestName: r.GuestName}
}

type bookingsPageJSON struct {
	Items []bookingJSON `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
}

type reviewJSON struct {
	ID         int64     `json:"id"`
	HomestayID int64     `json:"homestay_id"`
	BookingID  *int64    `json:"booking_id,omitempty"`
	GuestName  string    `json:"guest_name"`
	CampaignID *int64    `json:"campaign_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	HostReply  *string   `json:"host_reply"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

func toReview(r domain.Review) reviewJSON {
	return reviewJSON{
		ID: r.ID, HomestayID: r.HomestayID, BookingID: r.BookingID, GuestName: r.GuestName,
		CampaignID: r.CampaignID, Rating: r.Rating, Comment: r.Comment, HostReply: r.HostReply,
		Source: string(r.Source), CreatedAt: r.CreatedAt,
	}
}

type reviewsPageJSON struct {
	Items      []reviewJSON `json:"items"`
	NextCursor *string      `json:"next_cursor"`
}

func toReviewsPage(p domain.ReviewsPage) reviewsPageJSON {
	return reviewsPageJSON{Items: mapSlice(p.Items, toReview), NextCursor: p.NextCursor}
}

type campaignJSON struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	HomestayID      int64      `json:"homestay_id"`
	DiscountPercent int        `json:"discount_percent"`
	ValidUntil      *time.Time `json:"valid_until"`
	Active          bool       `json:"active"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toCampaign(c domain.Campaign) campaignJSON {
	return campaignJSON{
		ID: c.ID, Name: c.Name, HomestayID: c.HomestayID, DiscountPercent: c.DiscountPercent,
		ValidUntil: c.ValidUntil, Active: c.Active, CreatedBy: c.CreatedBy, CreatedAt: c.CreatedAt,
	}
}

type qrCodeJSON struct {
	Code        string    `json:"code"`
	URL         string    `json:"url"`
	Scans       int       `json:"scans"`
	Submissions int       `json:"submissions"`
	CreatedAt   time.Time `json:"created_at"`
}

type campaignDetailJSON struct {
	campaignJSON
	Codes []qrCodeJSON `json:"codes"`
}

func (h *Handlers) toCampaignDetail(d app.CampaignDetail) campaignDetailJSON {
	return campaignDetailJSON{
		campaignJSON: toCampaign(d.Campaign),
		Codes: mapSlice(d.Codes, func(q domain.QRCode) qrCodeJSON {
			return qrCodeJSON{Code: q.Code, URL: h.Campaigns.LandingURL(q.Code), Scans: q.Scans, Submissions: q.Submissions, CreatedAt: q.CreatedAt}
		}),
	}
}

type discountJSON struct {
	Code      string    `json:"code"`
	Percent   int       `json:"percent"`
	ExpiresAt time.Time `json:"expires_at"`
}

type blogJSON struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	ContentHTML string     `json:"content_html,omitempty"`
	CoverImage  string     `json:"cover_image"`
	Tags        []string   `json:"tags"`
	Status      string     `json:"status"`
	AuthorID    int64      `json:"author_id"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toBlog(b domain.Blog) blogJSON {
	out := blogJSON{
		ID: b.ID, Title: b.Title, Slug: b.Slug, Excerpt: b.Excerpt, ContentHTML: b.ContentHTML,
		CoverImage: b.CoverImage, Tags: b.Tags, Status: string(b.Status), AuthorID: b.AuthorID,
		PublishedAt: b.PublishedAt, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// toBlogSummary leaves out the body for list pages.
func toBlogSummary(b domain.Blog) blogJSON {
	out := toBlog(b)
	out.ContentHTML = ""
	return out
}

type masterJSON struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

func toMaster(it domain.MasterItem) masterJSON {
	return masterJSON{
		ID: it.ID, Kind: string(it.Kind), Name: it.Name, Slug: it.Slug,
		Description: it.Description, Image: it.Image, Icon: it.Icon,
	}
}

type communityJSON struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	DestinationID int64  `json:"destination_id"`
	ManagerID     *int64 `json:"manager_id"`
}

func toCommunity(c domain.Community) communityJSON {
	return communityJSON{
		ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description,
		DestinationID: c.DestinationID, ManagerID: c.ManagerID,
	}
}

type managerJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func toManager(m domain.CommunityManager) managerJSON {
	return managerJSON{ID: m.ID, Name: m.Name, Email: m.Email, Phone: m.Phone}
}

type communityViewJSON struct {
	communityJSON
	Manager   *managerJSON       `json:"manager"`
	Homestays []homestayViewJSON `json:"homestays"`
}

func toCommunityView(v app.CommunityView) communityViewJSON {
	out := communityViewJSON{communityJSON: toCommunity(v.Community), Homestays: mapSlice(v.Homestays, toView)}
	if v.Manager != nil {
		m := toManager(*v.Manager)
		out.Manager = &m
	}
	return out
}

type summaryJSON struct {
	ByStatus         map[string]int  `json:"by_status"`
	UpcomingCheckIns int             `json:"upcoming_check_ins"`
	Revenue          decimal.Decimal `json:"revenue"`
	Rating           ratingJSON      `json:"rating"`
	Homestays        int             `json:"homestays"`
}

func toSummary(s domain.HostSummary) summaryJSON {
	out := summaryJSON{
		ByStatus:         make(map[string]int, len(s.ByStatus)),
		UpcomingCheckIns: s.UpcomingCheckIns,
		Revenue:          s.Revenue,
		Rating:           toRating(s.Rating),
		Homestays:        s.Homestays,
	}
	for k, v := range s.ByStatus {
		out.ByStatus[string(k)] = v
	}
	return out
}

type receiptLineJSON struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type receiptJSON struct {
	Booking  bookingRowJSON    `json:"booking"`
	Lines    []receiptLineJSON `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Discount decimal.Decimal   `json:"discount"`
	Total    decimal.Decimal   `json:"total"`
	IssuedAt time.Time         `json:"issued_at"`
}

func toReceipt(r app.Receipt) receiptJSON {
	return receiptJSON{
		Booking: toBookingRow(r.Row),
		Lines: mapSlice(r.Lines, func(l app.ReceiptLine) receiptLineJSON {
			return receiptLineJSON{Description: l.Description, Amount: l.Amount}
		}),
		Subtotal: r.Subtotal, Discount: r.Discount, Total: r.Total, IssuedAt: r.IssuedAt,
	}
}

type stepJSON struct {
	Homestay homestayJSON `json:"homestay"`
	NextStep int          `json:"next_step"`
	Token    *auth.Token  `json:"token,omitempty"`
}

func toStep(s app.StepResult) stepJSON {
	return stepJSON{Homestay: toHomestay(s.Homestay), NextStep: s.NextStep, Token: s.Token}
}
