package objects

import (
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/logishift/viewrank/internal/models"
	"github.com/logishift/viewrank/internal/views"
)

// DateLayout is the publish date format used in API payloads
const DateLayout = "2006-01-02 15:04:05"

// Rendered wraps display text the way post payloads carry it
type Rendered struct {
	Rendered string `json:"rendered"`
}

// Meta holds optional post metadata
type Meta struct {
	StructuredSummary string `json:"ai_structured_summary,omitempty"`
}

// Post is the public representation of an article
type Post struct {
	ID      int64    `json:"id"`
	Date    string   `json:"date"`
	Link    string   `json:"link"`
	Title   Rendered `json:"title"`
	Excerpt Rendered `json:"excerpt"`
	Meta    Meta     `json:"meta"`
}

// PopularPost is a Post with its view total for the requested window
type PopularPost struct {
	Post
	Views int64 `json:"views"`
}

// Stored titles and excerpts are rendered as HTML by consumers: titles keep no
// markup, excerpts keep user-generated-content markup.
var (
	titlePolicy   = bluemonday.StrictPolicy()
	excerptPolicy = bluemonday.UGCPolicy()
)

// Builder turns stored posts into API objects for one site
type Builder struct {
	siteURL string
	loc     *time.Location
}

// NewBuilder creates a new post object builder. Dates are rendered in loc.
func NewBuilder(siteURL string, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		siteURL: strings.TrimRight(siteURL, "/"),
		loc:     loc,
	}
}

// Permalink returns the public URL of post
func (b *Builder) Permalink(post *models.Post) string {
	if post.Slug == "" {
		return b.siteURL + "/?p=" + strconv.FormatInt(post.ID, 10)
	}
	return b.siteURL + "/" + post.Slug + "/"
}

// Post builds the object for a single post
func (b *Builder) Post(post *models.Post) Post {
	obj := Post{
		ID:      post.ID,
		Date:    post.PublishedAt.In(b.loc).Format(DateLayout),
		Link:    b.Permalink(post),
		Title:   Rendered{Rendered: titlePolicy.Sanitize(post.Title)},
		Excerpt: Rendered{Rendered: excerptPolicy.Sanitize(post.Excerpt)},
	}
	if post.StructuredSummary.Valid {
		obj.Meta.StructuredSummary = post.StructuredSummary.String
	}
	return obj
}

// Popular builds ranking objects in rank order. The result is never nil.
func (b *Builder) Popular(ranked []views.RankedPost) []PopularPost {
	result := make([]PopularPost, 0, len(ranked))
	for _, r := range ranked {
		if r.Post == nil {
			continue
		}
		result = append(result, PopularPost{
			Post:  b.Post(r.Post),
			Views: r.Views,
		})
	}
	return result
}
