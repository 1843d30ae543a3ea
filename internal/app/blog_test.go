package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
)

func TestBlog_SanitizeSlugExcerpt(t *testing.T) {
	f := newFixture(t)
	s := NewBlogService(f.store)
	s.clock = fixedClock

	in := BlogInput{
		Title:       "Best Cafés in Da Lat",
		ContentHTML: `<p>Morning <b>coffee</b> by the lake.</p><script>alert(1)</script>`,
		Tags:        []string{"Food", "food", " travel "},
	}
	b, err := s.Create(f.ctx, f.admin.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "best-caf-s-in-da-lat", b.Slug)
	assert.NotContains(t, b.ContentHTML, "<script>")
	assert.Contains(t, b.ContentHTML, "<b>coffee</b>")
	assert.Equal(t, "Morning coffee by the lake.", b.Excerpt)
	assert.Equal(t, []string{"food", "travel"}, b.Tags)
	assert.Equal(t, domain.BlogDraft, b.Status)

	b2, err := s.Create(f.ctx, f.admin.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "best-caf-s-in-da-lat-2", b2.Slug)

	// updating without a title change keeps the slug
	b2, err = s.Update(f.ctx, b2.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "best-caf-s-in-da-lat-2", b2.Slug)
}

func TestBlog_LongExcerptIsCut(t *testing.T) {
	f := newFixture(t)
	s := NewBlogService(f.store)
	b, err := s.Create(f.ctx, f.admin.ID, BlogInput{Title: "Long", ContentHTML: "<p>" + strings.Repeat("ồ ", 200) + "</p>"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(b.Excerpt)), excerptRunes+1)
	assert.True(t, strings.HasSuffix(b.Excerpt, "…"))
}

func TestBlog_PublishVisibility(t *testing.T) {
	f := newFixture(t)
	s := NewBlogService(f.store)
	s.clock = fixedClock

	b, err := s.Create(f.ctx, f.admin.ID, BlogInput{Title: "Hidden", ContentHTML: "<p>x</p>", Tags: []string{"news"}})
	require.NoError(t, err)
	_, err = s.BySlug(f.ctx, b.Slug)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b, err = s.Publish(f.ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, b.PublishedAt)
	assert.Equal(t, fixedNow, *b.PublishedAt)

	got, err := s.BySlug(f.ctx, b.Slug)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	list, err := s.Published(f.ctx, "NEWS", domain.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.Unpublish(f.ctx, b.ID)
	require.NoError(t, err)
	list, err = s.Published(f.ctx, "", domain.Page{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Create(f.ctx, f.admin.ID, BlogInput{})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
