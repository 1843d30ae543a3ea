package httpserver

import (
	"net/http"

	"homestay_hub/internal/app"
)

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type otpRequestReq struct {
	Phone  string `json:"phone" validate:"required"`
	QRCode string `json:"qr_code" validate:"omitempty,max=64"`
}

type otpVerifyReq struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	s, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(s))
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	s, err := h.Accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSession(s))
}

func (h *Handlers) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequestReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	ttl, err := h.Accounts.RequestOTP(r.Context(), req.Phone, req.QRCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"expires_in": int(ttl.Seconds())})
}

func (h *Handlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	s, err := h.Accounts.VerifyOTP(r.Context(), app.VerifyOTP{Phone: req.Phone, Code: req.Code, Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(s))
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Accounts.Me(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}
