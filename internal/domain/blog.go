package domain

import "time"

type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
)

type Blog struct {
	ID          int64
	Title       string
	Slug        string
	Excerpt     string
	ContentHTML string
	CoverImage  string
	Tags        []string
	Status      BlogStatus
	AuthorID    int64
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BlogFilter struct {
	Status *BlogStatus
	Tag    string
	Page   Page
}
