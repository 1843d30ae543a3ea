package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"homestay_hub/internal/app"
)

type campaignReq struct {
	Name            string     `json:"name" validate:"required,max=200"`
	HomestayID      int64      `json:"homestay_id" validate:"required,gt=0"`
	DiscountPercent int        `json:"discount_percent" validate:"min=0,max=100"`
	ValidUntil      *time.Time `json:"valid_until"`
	QRCount         int        `json:"qr_count" validate:"required,min=1,max=500"`
}

type countReq struct {
	Count int `json:"count" validate:"required,min=1,max=500"`
}

type ratingReq struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handlers) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	d, err := h.Campaigns.Create(r.Context(), app.NewCampaign{
		Name:            req.Name,
		HomestayID:      req.HomestayID,
		DiscountPercent: req.DiscountPercent,
		ValidUntil:      req.ValidUntil,
		QRCount:         req.QRCount,
		CreatedBy:       principal(r).UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toCampaignDetail(d))
}

func (h *Handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	cs, err := h.Campaigns.List(r.Context(), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cs, toCampaign))
}

func (h *Handlers) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	d, err := h.Campaigns.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toCampaignDetail(d))
}

func (h *Handlers) deactivateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Campaigns.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.getCampaign(w, r)
}

func (h *Handlers) addQRCodes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req countReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	codes, err := h.Campaigns.AddCodes(r.Context(), id, req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]string{"codes": codes})
}

func (h *Handlers) qrPNG(w http.ResponseWriter, r *http.Request) {
	size := 0
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondErr(w, r, badRequest("size must be an integer"))
			return
		}
		size = n
	}
	png, err := h.Campaigns.RenderQR(r.Context(), chi.URLParam(r, "code"), size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	writeFile(w, "image/png", "", png)
}

/********** review flow **********/

func (h *Handlers) scanQR(w http.ResponseWriter, r *http.Request) {
	l, err := h.Campaigns.Scan(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Code          string           `json:"code"`
		CampaignName  string           `json:"campaign_name"`
		Homestay      homestayViewJSON `json:"homestay"`
		Active        bool             `json:"active"`
		RewardPercent int              `json:"reward_percent"`
	}{l.Code, l.CampaignName, toView(l.Homestay), l.Active, l.RewardPercent})
}

func (h *Handlers) submitQRReview(w http.ResponseWriter, r *http.Request) {
	var req ratingReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := h.Campaigns.SubmitReview(r.Context(), principal(r), chi.URLParam(r, "code"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := struct {
		Review   reviewJSON    `json:"review"`
		Discount *discountJSON `json:"discount,omitempty"`
	}{Review: toReview(res.Review)}
	if d := res.Discount; d != nil {
		out.Discount = &discountJSON{Code: d.Code, Percent: d.Percent, ExpiresAt: d.ExpiresAt}
	}
	writeJSON(w, http.StatusCreated, out)
}
