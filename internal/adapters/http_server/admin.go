package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"homestay_hub/internal/domain"
)

/********** homestay approval **********/

func (h *Handlers) adminHomestays(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var status *domain.HomestayStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := domain.ParseHomestayStatus(s)
		if !ok {
			respondErr(w, r, badRequest("unknown status %q", s))
			return
		}
		status = &st
	}
	page, err := h.Admin.ListHomestays(r.Context(), status, r.URL.Query().Get("q"), pg)
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

func (h *Handlers) adminHomestay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	d, err := h.Admin.GetHomestay(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHomestayDetail(d))
}

func (h *Handlers) adminApprove(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, func(id int64) (domain.Homestay, error) { return h.Admin.Approve(r.Context(), id) })
}

func (h *Handlers) adminSuspend(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, func(id int64) (domain.Homestay, error) { return h.Admin.Suspend(r.Context(), id) })
}

type rejectReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handlers) adminReject(w http.ResponseWriter, r *http.Request) {
	var req rejectReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	h.moderate(w, r, func(id int64) (domain.Homestay, error) { return h.Admin.Reject(r.Context(), id, req.Reason) })
}

func (h *Handlers) moderate(w http.ResponseWriter, r *http.Request, do func(int64) (domain.Homestay, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	hs, err := do(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHomestay(hs))
}

/********** featured curation **********/

type idsReq struct {
	HomestayIDs []int64 `json:"homestay_ids" validate:"dive,gt=0"`
}

func (h *Handlers) adminFeatured(w http.ResponseWriter, r *http.Request) {
	hs, err := h.Admin.Featured(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(hs, toHomestay))
}

func (h *Handlers) adminSetFeatured(w http.ResponseWriter, r *http.Request) {
	var req idsReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Admin.SetFeatured(r.Context(), req.HomestayIDs); err != nil {
		writeError(w, r, err)
		return
	}
	h.adminFeatured(w, r)
}

/********** master data **********/

type masterReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Image       string `json:"image" validate:"omitempty,url"`
	Icon        string `json:"icon" validate:"max=64"`
}

func kindParam(r *http.Request) (domain.MasterKind, error) {
	k, ok := domain.ParseMasterKind(chi.URLParam(r, "kind"))
	if !ok {
		return "", domain.ErrNotFound
	}
	return k, nil
}

func (h *Handlers) adminListMaster(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.Admin.ListMaster(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(items, toMaster))
}

func (h *Handlers) adminCreateMaster(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req masterReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	it, err := h.Admin.CreateMaster(r.Context(), domain.MasterItem{
		Kind: kind, Name: req.Name, Description: req.Description, Image: req.Image, Icon: req.Icon,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaster(it))
}

func (h *Handlers) adminUpdateMaster(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req masterReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	it, err := h.Admin.UpdateMaster(r.Context(), domain.MasterItem{
		ID: id, Kind: kind, Name: req.Name, Description: req.Description, Image: req.Image, Icon: req.Icon,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaster(it))
}

func (h *Handlers) adminDeleteMaster(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Admin.DeleteMaster(r.Context(), kind, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** communities **********/

type communityReq struct {
	Name          string `json:"name" validate:"required,max=120"`
	Description   string `json:"description" validate:"max=4000"`
	DestinationID int64  `json:"destination_id" validate:"required,gt=0"`
	ManagerID     *int64 `json:"manager_id" validate:"omitempty,gt=0"`
}

func (h *Handlers) adminCommunities(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Admin.ListCommunities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cs, toCommunity))
}

func (h *Handlers) adminCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	c, err := h.Admin.GetCommunity(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommunity(c))
}

func (h *Handlers) adminCreateCommunity(w http.ResponseWriter, r *http.Request) {
	h.saveCommunity(w, r, 0)
}

func (h *Handlers) adminUpdateCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.Admin.GetCommunity(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.saveCommunity(w, r, id)
}

func (h *Handlers) saveCommunity(w http.ResponseWriter, r *http.Request, id int64) {
	var req communityReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	c, err := h.Admin.SaveCommunity(r.Context(), domain.Community{
		ID: id, Name: req.Name, Description: req.Description,
		DestinationID: req.DestinationID, ManagerID: req.ManagerID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, toCommunity(c))
}

func (h *Handlers) adminDeleteCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Admin.DeleteCommunity(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) adminAssignHomestays(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req idsReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Admin.AssignHomestays(r.Context(), id, req.HomestayIDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type managerReq struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

func (h *Handlers) adminManagers(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Admin.ListManagers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(ms, toManager))
}

func (h *Handlers) adminCreateManager(w http.ResponseWriter, r *http.Request) {
	h.saveManager(w, r, 0)
}

func (h *Handlers) adminUpdateManager(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.saveManager(w, r, id)
}

func (h *Handlers) saveManager(w http.ResponseWriter, r *http.Request, id int64) {
	var req managerReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	m, err := h.Admin.SaveManager(r.Context(), domain.CommunityManager{ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, toManager(m))
}

func (h *Handlers) adminDeleteManager(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Admin.DeleteManager(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
