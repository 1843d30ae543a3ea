package httpserver

import (
	"net/http"

	"homestay_hub/internal/app"
	"homestay_hub/internal/domain"
)

type blogReq struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Excerpt     string   `json:"excerpt" validate:"max=500"`
	ContentHTML string   `json:"content_html" validate:"required"`
	CoverImage  string   `json:"cover_image" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"max=10,dive,required,max=40"`
}

func (req blogReq) input() app.BlogInput {
	return app.BlogInput{Title: req.Title, Excerpt: req.Excerpt, ContentHTML: req.ContentHTML, CoverImage: req.CoverImage, Tags: req.Tags}
}

func (h *Handlers) adminBlogs(w http.ResponseWriter, r *http.Request) {
	pg, err := pageParams(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var status *domain.BlogStatus
	switch s := domain.BlogStatus(r.URL.Query().Get("status")); s {
	case "":
	case domain.BlogDraft, domain.BlogPublished:
		status = &s
	default:
		respondErr(w, r, badRequest("status must be draft or published"))
		return
	}
	bs, err := h.Blog.List(r.Context(), status, pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(bs, toBlogSummary))
}

func (h *Handlers) adminBlog(w http.ResponseWriter, r *http.Request) {
	h.blogOp(w, r, func(id int64) (domain.Blog, error) { return h.Blog.Get(r.Context(), id) })
}

func (h *Handlers) createBlog(w http.ResponseWriter, r *http.Request) {
	var req blogReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	b, err := h.Blog.Create(r.Context(), principal(r).UserID, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlog(b))
}

func (h *Handlers) updateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogReq
	if err := decode(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	h.blogOp(w, r, func(id int64) (domain.Blog, error) { return h.Blog.Update(r.Context(), id, req.input()) })
}

func (h *Handlers) publishBlog(w http.ResponseWriter, r *http.Request) {
	h.blogOp(w, r, func(id int64) (domain.Blog, error) { return h.Blog.Publish(r.Context(), id) })
}

func (h *Handlers) unpublishBlog(w http.ResponseWriter, r *http.Request) {
	h.blogOp(w, r, func(id int64) (domain.Blog, error) { return h.Blog.Unpublish(r.Context(), id) })
}

func (h *Handlers) deleteBlog(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.Blog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) blogOp(w http.ResponseWriter, r *http.Request, do func(int64) (domain.Blog, error)) {
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
	writeJSON(w, http.StatusOK, toBlog(b))
}
