package objects

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/logishift/viewrank/internal/models"
	"github.com/logishift/viewrank/internal/views"
)

func TestBuilder_Permalink(t *testing.T) {
	b := NewBuilder("https://example.com/", time.UTC)

	tests := []struct {
		name string
		post models.Post
		want string
	}{
		{"slug", models.Post{ID: 3, Slug: "ev-logistics"}, "https://example.com/ev-logistics/"},
		{"no slug", models.Post{ID: 3}, "https://example.com/?p=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Permalink(&tt.post); got != tt.want {
				t.Errorf("Permalink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuilder_Post(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	b := NewBuilder("https://example.com", tokyo)

	post := &models.Post{
		ID:                10,
		Title:             "Port congestion eases",
		Excerpt:           `<p>Dwell times fell for the <em>third</em> week.</p><script>alert(1)</script>`,
		Slug:              "port-congestion-eases",
		PublishedAt:       time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC),
		StructuredSummary: sql.NullString{String: `{"summary":"short"}`, Valid: true},
	}

	got := b.Post(post)
	if got.Date != "2026-10-19 08:30:00" {
		t.Errorf("Post().Date = %q, want %q", got.Date, "2026-10-19 08:30:00")
	}
	if got.Title.Rendered != post.Title {
		t.Errorf("Post().Title = %q, want %q", got.Title.Rendered, post.Title)
	}
	if got.Excerpt.Rendered != "<p>Dwell times fell for the <em>third</em> week.</p>" {
		t.Errorf("Post().Excerpt = %q", got.Excerpt.Rendered)
	}
	if got.Meta.StructuredSummary != `{"summary":"short"}` {
		t.Errorf("Post().Meta = %q", got.Meta.StructuredSummary)
	}
}

func TestBuilder_Post_StripsTitleMarkup(t *testing.T) {
	b := NewBuilder("https://example.com", time.UTC)
	got := b.Post(&models.Post{ID: 1, Title: "<b>Freight</b> rates climb"})
	if got.Title.Rendered != "Freight rates climb" {
		t.Errorf("Post().Title = %q, want %q", got.Title.Rendered, "Freight rates climb")
	}
}

func TestBuilder_Popular_JSONShape(t *testing.T) {
	b := NewBuilder("https://example.com", time.UTC)
	ranked := []views.RankedPost{
		{Post: &models.Post{ID: 10, Title: "A", Slug: "a", PublishedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}, Views: 8},
		{Post: nil, Views: 4},
	}

	raw, err := json.Marshal(b.Popular(ranked))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `[{"id":10,"date":"2026-10-01 09:00:00","link":"https://example.com/a/","title":{"rendered":"A"},"excerpt":{"rendered":""},"meta":{},"views":8}]`
	if string(raw) != want {
		t.Errorf("Popular() JSON =\n%s\nwant\n%s", raw, want)
	}

	empty, _ := json.Marshal(b.Popular(nil))
	if string(empty) != "[]" {
		t.Errorf("Popular(nil) JSON = %s, want []", empty)
	}
}
