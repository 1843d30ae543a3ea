package httpserver

import (
	"net/http"

	"homestay_hub/internal/app"
	"homestay_hub/internal/domain"
)

type bookingReq struct {
	HomestayID   int64  `json:"homestay_id" validate:"required,gt=0"`
	RoomID       int64  `json:"room_id" validate:"required,gt=0"`
	CheckIn      string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut     string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests       int    `json:"guests" validate:"required,min=1"`
	DiscountCode string `json:"discount_code" validate:"omitempty,max=32"`
}

func (h *Handlers) book(w http.ResponseWriter, r *http.Request) {
	var req bookingReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	in, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Guest.Book(r.Context(), principal(r), app.NewBooking{
		HomestayID:   req.HomestayID,
		RoomID:       req.RoomID,
		CheckIn:      in,
		CheckOut:     out,
		Guests:       req.Guests,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBooking(b))
}

func (h *Handlers) myBookings(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	page, err := h.Guest.Bookings(r.Context(), principal(r), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingsPageJSON{Items: mapSlice(page.Items, toBooking), Total: page.Total, Page: pg.Number})
}

func (h *Handlers) myBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingOp(w, r, func(id int64) (domain.Booking, error) { return h.Guest.Booking(r.Context(), principal(r), id) })
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var req reasonReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	h.bookingOp(w, r, func(id int64) (domain.Booking, error) {
		return h.Guest.Cancel(r.Context(), principal(r), id, req.Reason)
	})
}

func (h *Handlers) bookingOp(w http.ResponseWriter, r *http.Request, do func(int64) (domain.Booking, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	b, err := do(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBooking(b))
}

func (h *Handlers) reviewBooking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req ratingReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	rv, err := h.Guest.Review(r.Context(), principal(r), id, req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReview(rv))
}

func (h *Handlers) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	rc, err := h.Guest.Receipt(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(rc))
}
