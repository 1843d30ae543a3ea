package httpserver

import (
	"net/http"

	"homestay_hub/internal/app"
)

type basicsReq struct {
	Name           string `json:"name" validate:"required,max=200"`
	Description    string `json:"description" validate:"max=5000"`
	PropertyTypeID int64  `json:"property_type_id" validate:"required,gt=0"`
	DestinationID  int64  `json:"destination_id" validate:"required,gt=0"`
}

func (b basicsReq) basics() app.Basics {
	return app.Basics{Name: b.Name, Description: b.Description, PropertyTypeID: b.PropertyTypeID, DestinationID: b.DestinationID}
}

type locationReq struct {
	Address string   `json:"address" validate:"required,max=300"`
	City    string   `json:"city" validate:"required,max=100"`
	Lat     *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon     *float64 `json:"lon" validate:"omitempty,longitude"`
}

func (l locationReq) location() app.Location {
	return app.Location{Address: l.Address, City: l.City, Lat: l.Lat, Lon: l.Lon}
}

type roomReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Capacity int    `json:"capacity" validate:"required"`
	Price    string `json:"price" validate:"required"`
	Quantity int    `json:"quantity" validate:"required"`
	Active   *bool  `json:"active"`
}

func (rr roomReq) input() app.RoomInput {
	return app.RoomInput{Name: rr.Name, Capacity: rr.Capacity, Price: rr.Price, Quantity: rr.Quantity}
}

type roomsReq struct {
	Rooms []roomReq `json:"rooms" validate:"required,min=1,max=50,dive"`
}

type listingReq struct {
	AmenityIDs []int64  `json:"amenity_ids" validate:"dive,gt=0"`
	Images     []string `json:"images" validate:"required,min=1,max=20,dive,url"`
}

func (h *Handlers) onboardingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Onboarding.Status(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := struct {
		Draft    *homestayJSON `json:"draft"`
		Rooms    []roomJSON    `json:"rooms"`
		NextStep int           `json:"next_step"`
	}{Rooms: mapSlice(st.Rooms, toRoom), NextStep: st.NextStep}
	if st.Draft != nil {
		d := toHomestay(*st.Draft)
		out.Draft = &d
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) step1(w http.ResponseWriter, r *http.Request) {
	var req basicsReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := h.Onboarding.Step1(r.Context(), principal(r), req.basics())
	h.writeStep(w, r, res, err)
}

func (h *Handlers) step2(w http.ResponseWriter, r *http.Request) {
	var req locationReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := h.Onboarding.Step2(r.Context(), principal(r), req.location())
	h.writeStep(w, r, res, err)
}

func (h *Handlers) step3(w http.ResponseWriter, r *http.Request) {
	var req roomsReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := h.Onboarding.Step3(r.Context(), principal(r), mapSlice(req.Rooms, roomReq.input))
	h.writeStep(w, r, res, err)
}

func (h *Handlers) step4(w http.ResponseWriter, r *http.Request) {
	var req listingReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := h.Onboarding.Step4(r.Context(), principal(r), app.Listing{AmenityIDs: req.AmenityIDs, Images: req.Images})
	h.writeStep(w, r, res, err)
}

func (h *Handlers) writeStep(w http.ResponseWriter, r *http.Request, res app.StepResult, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStep(res))
}
