package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"homestay_hub/internal/app"
	"homestay_hub/internal/domain"
	"homestay_hub/internal/shared"
)

type Handlers struct {
	Q          *app.QueryService
	Admin      *app.AdminService
	Campaigns  *app.CampaignService
	Blog       *app.BlogService
	Onboarding *app.OnboardingService
	Host       *app.HostService
	Guest      *app.GuestService
	Accounts   *app.AccountService
	Tokens     TokenParser
	// IPLimiter throttles the one-time-code endpoints per client IP.
	IPLimiter *shared.KeyedLimiter
}

type problem struct {
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	Status  int               `json:"status"`
	Detail  string            `json:"detail,omitempty"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	m := s.mux
	m.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	// public catalogue
	m.Get("/featured", h.featured)
	m.Get("/destinations", h.master(domain.KindDestination))
	m.Get("/amenities", h.master(domain.KindAmenity))
	m.Get("/property-types", h.master(domain.KindPropertyType))
	m.Get("/destinations/{slug}/homestays", h.browseDestination)
	m.Get("/communities", h.communities)
	m.Get("/communities/{slug}", h.community)
	m.Get("/homestays/{id}", h.getHomestay)
	m.Get("/homestays/{id}/reviews", h.listReviews)
	m.Get("/blogs", h.publishedBlogs)
	m.Get("/blogs/{slug}", h.blogBySlug)
	m.Get("/qr/{code}", h.scanQR)

	m.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.With(RateLimit(h.IPLimiter)).Post("/otp/request", h.requestOTP)
		r.With(RateLimit(h.IPLimiter)).Post("/otp/verify", h.verifyOTP)
		r.With(Authenticate(h.Tokens)).Get("/me", h.me)
	})

	m.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Tokens), RequireRole(domain.RoleGuest, domain.RoleHost))
		r.Post("/qr/{code}/review", h.submitQRReview)

		r.Post("/bookings", h.book)
		r.Get("/bookings", h.myBookings)
		r.Get("/bookings/{id}", h.myBooking)
		r.Post("/bookings/{id}/cancel", h.cancelBooking)
		r.Post("/bookings/{id}/review", h.reviewBooking)
		r.Get("/bookings/{id}/receipt", h.receipt)

		r.Get("/onboarding/status", h.onboardingStatus)
		r.Post("/onboarding/step1", h.step1)
		r.Post("/onboarding/step2", h.step2)
		r.Post("/onboarding/step3", h.step3)
		r.Post("/onboarding/step4", h.step4)
	})

	m.Route("/host-dashboard", func(r chi.Router) {
		r.Use(Authenticate(h.Tokens), RequireRole(domain.RoleHost))
		r.Get("/summary", h.hostSummary)
		r.Get("/homestays", h.hostHomestays)
		r.Get("/homestays/{id}", h.hostHomestay)
		r.Put("/homestays/{id}", h.hostUpdateHomestay)
		r.Post("/homestays/{id}/rooms", h.hostCreateRoom)
		r.Put("/rooms/{id}", h.hostUpdateRoom)
		r.Delete("/rooms/{id}", h.hostDeleteRoom)
		r.Get("/bookings", h.hostBookings)
		r.Get("/bookings/export.xlsx", h.hostExport)
		r.Get("/bookings/{id}", h.hostBooking)
		r.Post("/bookings/{id}/{action}", h.hostAct)
		r.Get("/reviews", h.hostReviews)
		r.Post("/reviews/{id}/reply", h.hostReply)
	})

	m.Route("/admin", func(r chi.Router) {
		r.Use(Authenticate(h.Tokens), RequireRole(domain.RoleAdmin))
		r.Get("/homestays", h.adminHomestays)
		r.Get("/homestays/{id}", h.adminHomestay)
		r.Post("/homestays/{id}/approve", h.adminApprove)
		r.Post("/homestays/{id}/reject", h.adminReject)
		r.Post("/homestays/{id}/suspend", h.adminSuspend)

		r.Get("/featured", h.adminFeatured)
		r.Put("/featured", h.adminSetFeatured)

		r.Get("/master/{kind}", h.adminListMaster)
		r.Post("/master/{kind}", h.adminCreateMaster)
		r.Put("/master/{kind}/{id}", h.adminUpdateMaster)
		r.Delete("/master/{kind}/{id}", h.adminDeleteMaster)

		r.Get("/communities", h.adminCommunities)
		r.Post("/communities", h.adminCreateCommunity)
		r.Get("/communities/{id}", h.adminCommunity)
		r.Put("/communities/{id}", h.adminUpdateCommunity)
		r.Delete("/communities/{id}", h.adminDeleteCommunity)
		r.Put("/communities/{id}/homestays", h.adminAssignHomestays)
		r.Get("/community-managers", h.adminManagers)
		r.Post("/community-managers", h.adminCreateManager)
		r.Put("/community-managers/{id}", h.adminUpdateManager)
		r.Delete("/community-managers/{id}", h.adminDeleteManager)

		r.Post("/campaigns", h.createCampaign)
		r.Get("/campaigns", h.listCampaigns)
		r.Get("/campaigns/{id}", h.getCampaign)
		r.Post("/campaigns/{id}/deactivate", h.deactivateCampaign)
		r.Post("/campaigns/{id}/qrcodes", h.addQRCodes)
		r.Get("/qrcodes/{code}.png", h.qrPNG)

		r.Get("/blogs", h.adminBlogs)
		r.Post("/blogs", h.createBlog)
		r.Get("/blogs/{id}", h.adminBlog)
		r.Put("/blogs/{id}", h.updateBlog)
		r.Delete("/blogs/{id}", h.deleteBlog)
		r.Post("/blogs/{id}/publish", h.publishBlog)
		r.Post("/blogs/{id}/unpublish", h.unpublishBlog)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Message: detail, Errors: fields}
	if p.Message == "" {
		p.Message = title
	}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", verr.Error(), verr.Fields)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "Invalid Transition", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error(), nil)
	case errors.Is(err, domain.ErrGone):
		writeProblem(w, http.StatusGone, "Gone", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error(), nil)
	case errors.Is(err, domain.ErrTooManyRequests):
		w.Header().Set("Retry-After", "60")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", err.Error(), nil)
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "something went wrong, please retry later", nil)
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached answers 304 when the client already holds this representation.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response", nil)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeFile(w http.ResponseWriter, contentType, filename string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		log.Error().Err(err).Msg("write file response failed")
	}
}
