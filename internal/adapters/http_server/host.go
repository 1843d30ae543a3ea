package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"homestay_hub/internal/app"
	"homestay_hub/internal/domain"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type homestayEditReq struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Description    string   `json:"description" validate:"max=5000"`
	PropertyTypeID int64    `json:"property_type_id" validate:"required,gt=0"`
	DestinationID  int64    `json:"destination_id" validate:"required,gt=0"`
	Address        string   `json:"address" validate:"required,max=300"`
	City           string   `json:"city" validate:"required,max=100"`
	Lat            *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon            *float64 `json:"lon" validate:"omitempty,longitude"`
	AmenityIDs     []int64  `json:"amenity_ids" validate:"dive,gt=0"`
	Images         []string `json:"images" validate:"required,min=1,max=20,dive,url"`
}

type reasonReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

type replyReq struct {
	Reply string `json:"reply" validate:"required,max=1000"`
}

func (h *Handlers) hostSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Host.Summary(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummary(s))
}

func (h *Handlers) hostHomestays(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	page, err := h.Host.Homestays(r.Context(), principal(r), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Items []homestayJSON `json:"items"`
		Total int            `json:"total"`
		Page  int            `json:"page"`
	}{mapSlice(page.Items, toHomestay), page.Total, pg.Number})
}

func (h *Handlers) hostHomestay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	d, err := h.Host.Homestay(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHomestayDetail(d))
}

func (h *Handlers) hostUpdateHomestay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req homestayEditReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	hs, err := h.Host.UpdateHomestay(r.Context(), principal(r), id, app.HomestayEdit{
		Basics:     app.Basics{Name: req.Name, Description: req.Description, PropertyTypeID: req.PropertyTypeID, DestinationID: req.DestinationID},
		Location:   app.Location{Address: req.Address, City: req.City, Lat: req.Lat, Lon: req.Lon},
		AmenityIDs: req.AmenityIDs,
		Images:     req.Images,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHomestay(hs))
}

func (h *Handlers) hostCreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req roomReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	room, err := h.Host.CreateRoom(r.Context(), principal(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoom(room))
}

func (h *Handlers) hostUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req roomReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	room, err := h.Host.UpdateRoom(r.Context(), principal(r), id, req.input(), req.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoom(room))
}

func (h *Handlers) hostDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	deactivated, err := h.Host.DeleteRoom(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deactivated {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deactivated": true,
		"message":     "room has upcoming bookings and was deactivated instead of deleted",
	})
}

func (h *Handlers) hostBookings(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var status *domain.BookingStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := domain.ParseBookingStatus(s)
		if !ok {
			respondErr(w, r, badRequest("unknown status %q", s))
			return
		}
		status = &st
	}
	homestayID, err := optInt64(r, "homestay_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	page, err := h.Host.Bookings(r.Context(), principal(r), status, homestayID, pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingsPageJSON{Items: mapSlice(page.Items, toBooking), Total: page.Total, Page: pg.Number})
}

func (h *Handlers) hostBooking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	row, err := h.Host.Booking(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingRow(row))
}

func (h *Handlers) hostAct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	action := chi.URLParam(r, "action")
	if _, ok := app.HostActions[action]; !ok {
		writeError(w, r, fmt.Errorf("booking action %q: %w", action, domain.ErrNotFound))
		return
	}
	var req reasonReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	b, err := h.Host.Act(r.Context(), principal(r), id, action, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBooking(b))
}

func (h *Handlers) hostExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verr := &domain.ValidationError{}
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		verr.Add("from", "must be a date formatted "+dateLayout)
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		verr.Add("to", "must be a date formatted "+dateLayout)
	}
	if err := verr.OrNil(); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Host.Export(r.Context(), principal(r), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("bookings-%s-%s.xlsx", from.Format(dateLayout), to.Format(dateLayout))
	writeFile(w, xlsxType, name, b)
}

func (h *Handlers) hostReviews(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	page, err := h.Host.Reviews(r.Context(), principal(r), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewsPage(page))
}

func (h *Handlers) hostReply(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req replyReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	rv, err := h.Host.Reply(r.Context(), principal(r), id, req.Reply)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReview(rv))
}
