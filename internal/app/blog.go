package app

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"homestay_hub/internal/domain"
)

const excerptRunes = 160

type BlogService struct {
	store  domain.Store
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
	clock  clock
}

func NewBlogService(s domain.Store) *BlogService {
	return &BlogService{store: s, ugc: bluemonday.UGCPolicy(), strict: bluemonday.StrictPolicy()}
}

type BlogInput struct {
	Title       string
	Excerpt     string
	ContentHTML string
	CoverImage  string
	Tags        []string
}

func (in BlogInput) validate() error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "is required")
	}
	if utf8.RuneCountInString(in.Title) > 200 {
		verr.Add("title", "must be at most 200 characters")
	}
	if strings.TrimSpace(in.ContentHTML) == "" {
		verr.Add("content_html", "is required")
	}
	if len(in.Tags) > 10 {
		verr.Add("tags", "at most 10 tags")
	}
	return verr.OrNil()
}

func normTags(tags []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// excerpt returns the first excerptRunes runes of the post's visible text.
func (s *BlogService) excerpt(content string) string {
	text := html.UnescapeString(s.strict.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:excerptRunes])) + "…"
}

// uniqueSlug appends -2, -3... until no other post owns the slug.
func (s *BlogService) uniqueSlug(ctx context.Context, title string, exceptID int64) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := s.store.SlugTaken(ctx, slug, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *BlogService) fill(ctx context.Context, b *domain.Blog, in BlogInput) error {
	slug, err := s.uniqueSlug(ctx, in.Title, b.ID)
	if err != nil {
		return err
	}
	b.Title = strings.TrimSpace(in.Title)
	b.Slug = slug
	b.ContentHTML = s.ugc.Sanitize(in.ContentHTML)
	b.CoverImage = strings.TrimSpace(in.CoverImage)
	b.Tags = normTags(in.Tags)
	b.Excerpt = strings.TrimSpace(s.strict.Sanitize(in.Excerpt))
	if b.Excerpt == "" {
		b.Excerpt = s.excerpt(b.ContentHTML)
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, authorID int64, in BlogInput) (domain.Blog, error) {
	if err := in.validate(); err != nil {
		return domain.Blog{}, err
	}
	b := domain.Blog{Status: domain.BlogDraft, AuthorID: authorID}
	if err := s.fill(ctx, &b, in); err != nil {
		return domain.Blog{}, err
	}
	if err := s.store.CreateBlog(ctx, &b); err != nil {
		return domain.Blog{}, err
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, id int64, in BlogInput) (domain.Blog, error) {
	if err := in.validate(); err != nil {
		return domain.Blog{}, err
	}
	b, err := s.store.GetBlog(ctx, id)
	if err != nil {
		return domain.Blog{}, err
	}
	if err := s.fill(ctx, &b, in); err != nil {
		return domain.Blog{}, err
	}
	if err := s.store.UpdateBlog(ctx, b); err != nil {
		return domain.Blog{}, err
	}
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteBlog(ctx, id)
}

func (s *BlogService) Get(ctx context.Context, id int64) (domain.Blog, error) {
	return s.store.GetBlog(ctx, id)
}

func (s *BlogService) Publish(ctx context.Context, id int64) (domain.Blog, error) {
	return s.setStatus(ctx, id, domain.BlogPublished)
}

func (s *BlogService) Unpublish(ctx context.Context, id int64) (domain.Blog, error) {
	return s.setStatus(ctx, id, domain.BlogDraft)
}

func (s *BlogService) setStatus(ctx context.Context, id int64, st domain.BlogStatus) (domain.Blog, error) {
	b, err := s.store.GetBlog(ctx, id)
	if err != nil {
		return domain.Blog{}, err
	}
	if b.Status == st {
		return b, nil
	}
	b.Status = st
	if st == domain.BlogPublished && b.PublishedAt == nil {
		now := s.clock.now().UTC()
		b.PublishedAt = &now
	}
	if err := s.store.UpdateBlog(ctx, b); err != nil {
		return domain.Blog{}, err
	}
	return b, nil
}

// List returns every post for the admin screen; status may narrow it.
func (s *BlogService) List(ctx context.Context, status *domain.BlogStatus, pg domain.Page) ([]domain.Blog, error) {
	return s.store.ListBlogs(ctx, domain.BlogFilter{Status: status, Page: normPage(pg)})
}

func (s *BlogService) Published(ctx context.Context, tag string, pg domain.Page) ([]domain.Blog, error) {
	st := domain.BlogPublished
	return s.store.ListBlogs(ctx, domain.BlogFilter{
		Status: &st,
		Tag:    strings.ToLower(strings.TrimSpace(tag)),
		Page:   normPage(pg),
	})
}

func (s *BlogService) BySlug(ctx context.Context, slug string) (domain.Blog, error) {
	b, err := s.store.GetBlogBySlug(ctx, slug)
	if err != nil {
		return domain.Blog{}, err
	}
	if b.Status != domain.BlogPublished {
		return domain.Blog{}, domain.ErrNotFound
	}
	return b, nil
}
