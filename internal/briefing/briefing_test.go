package briefing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

func TestRender(t *testing.T) {
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	posts := []*entity.Post{
		{
			ID:           uuid.New(),
			Title:        "Busy night <b>downtown</b>",
			Summary:      "The office responded:\n\n1:34 AM – Traffic stop on **Main St**.\n2:10 AM – Noise.<script>alert(1)</script>",
			AgencyName:   "Gallatin County Sheriff's Office",
			IncidentDate: "02/11/26",
		},
		{ID: uuid.New(), County: "Hill", Summary: "Quiet day."},
	}

	out, err := Render(posts, day, time.Date(2026, 2, 12, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"<p><strong>Date:</strong> February 12, 2026</p>",
		"2 report(s) from 2026-02-11",
		"Busy night &lt;b&gt;downtown&lt;/b&gt;",
		"Gallatin County Sheriff&#39;s Office &mdash; 02/11/26",
		"<strong>Main St</strong>",
		"<br",
		"<h3>Daily Activity Report</h3>",
		"Hill &mdash; 2026-02-11",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("script survived sanitizing:\n%s", html)
	}
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render(nil, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "0 report(s) from 2026-02-11") {
		t.Errorf("out = %s", out)
	}
}

type pagedLister struct {
	posts   []*entity.Post
	filters []entity.PostFilter
}

func (l *pagedLister) ListPosts(_ context.Context, f entity.PostFilter) ([]*entity.Post, int, error) {
	l.filters = append(l.filters, f)
	end := min(f.Offset+f.Limit, len(l.posts))
	if f.Offset >= len(l.posts) {
		return nil, len(l.posts), nil
	}
	return l.posts[f.Offset:end], len(l.posts), nil
}

func TestPostsForDayPagesAndReverses(t *testing.T) {
	var posts []*entity.Post
	for i := 0; i < 150; i++ {
		posts = append(posts, &entity.Post{ID: uuid.New()})
	}
	l := &pagedLister{posts: posts}
	day := time.Date(2026, 2, 11, 15, 30, 0, 0, time.Local)

	got, err := PostsForDay(context.Background(), l, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 150 || got[0] != posts[149] || got[149] != posts[0] {
		t.Errorf("got %d posts, order wrong", len(got))
	}
	if len(l.filters) != 2 {
		t.Fatalf("calls = %d", len(l.filters))
	}
	f := l.filters[0]
	if f.DateFrom.Format(DayLayout) != "2026-02-11" || !f.DateFrom.Equal(*f.DateTo) {
		t.Errorf("filter = %+v", f)
	}
}
