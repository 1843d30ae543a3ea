package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"homestay_hub/internal/app"
	"homestay_hub/internal/domain"
)

func (h *Handlers) featured(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Q.Featured(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, mapSlice(vs, toView))
}

func (h *Handlers) master(kind domain.MasterKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.Q.ListMaster(r.Context(), kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeCached(w, r, mapSlice(items, toMaster))
	}
}

func (h *Handlers) browseDestination(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	guests := 0
	if s := r.URL.Query().Get("guests"); s != "" {
		if guests, err = strconv.Atoi(s); err != nil || guests < 0 {
			respondErr(w, r, badRequest("guests must be a non-negative integer"))
			return
		}
	}
	out, err := h.Q.BrowseDestination(r.Context(), app.BrowseQuery{
		DestinationSlug: chi.URLParam(r, "slug"),
		Guests:          guests,
		MinPrice:        optString(r, "min_price"),
		MaxPrice:        optString(r, "max_price"),
		Page:            pg,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, struct {
		Destination masterJSON         `json:"destination"`
		Items       []homestayViewJSON `json:"items"`
		Total       int                `json:"total"`
		Page        int                `json:"page"`
	}{toMaster(out.Destination), mapSlice(out.Items, toView), out.Total, pg.Number})
}

func (h *Handlers) communities(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Q.ListCommunities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, mapSlice(cs, toCommunity))
}

func (h *Handlers) community(w http.ResponseWriter, r *http.Request) {
	v, err := h.Q.GetCommunity(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toCommunityView(v))
}

func (h *Handlers) getHomestay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	v, err := h.Q.GetHomestay(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toView(v))
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200", nil)
			return
		}
		limit = l
	}

	// Newest first; aligns with DB index on (homestay_id, created_at, id)
	page := domain.PageQuery{Limit: limit, Sort: "-created_at"}
	out, err := h.Q.ListReviews(r.Context(), id, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toReviewsPage(out))
}

func (h *Handlers) publishedBlogs(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	bs, err := h.Blog.Published(r.Context(), r.URL.Query().Get("tag"), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, mapSlice(bs, toBlogSummary))
}

func (h *Handlers) blogBySlug(w http.ResponseWriter, r *http.Request) {
	b, err := h.Blog.BySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, toBlog(b))
}
