// Package briefing renders the morning digest of a day's posts as HTML.
package briefing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

// DayLayout is the date format accepted by the briefing command.
const DayLayout = "2006-01-02"

var (
	md     = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))
	policy = bluemonday.UGCPolicy()
)

var page = template.Must(template.New("briefing").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Montana Blotter: Morning Briefing</title></head>
<body>
<h2>Montana Blotter: Morning Briefing</h2>
<p><strong>Date:</strong> {{.Generated}}</p>
<p>{{len .Items}} report(s) from {{.Day}}</p>
<hr>
{{range .Items}}<h3>{{.Title}}</h3>
<p style="color:#666;font-size:13px;">{{.Agency}} &mdash; {{.Date}}</p>
{{.Body}}
<hr>
{{end}}</body></html>
`))

type item struct {
	Title  string
	Agency string
	Date   string
	Body   template.HTML
}

// Render builds the briefing page for posts reported on day. Summaries are
// treated as markdown and sanitized before they reach the page.
func Render(posts []*entity.Post, day time.Time, generated time.Time) ([]byte, error) {
	dayStr := day.Format(DayLayout)
	data := struct {
		Generated string
		Day       string
		Items     []item
	}{Generated: generated.Format("January 02, 2006"), Day: dayStr}

	for _, p := range posts {
		body, err := SummaryHTML(p.Summary)
		if err != nil {
			return nil, fmt.Errorf("render post %s: %w", p.ID, err)
		}
		data.Items = append(data.Items, item{
			Title:  firstNonEmpty(p.Title, "Daily Activity Report"),
			Agency: firstNonEmpty(p.AgencyName, p.County, "Unknown Agency"),
			Date:   firstNonEmpty(p.IncidentDate, dayStr),
			Body:   body,
		})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// SummaryHTML converts a markdown summary into sanitized HTML.
func SummaryHTML(summary string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(summary), &buf); err != nil {
		return "", err
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

type PostLister interface {
	ListPosts(ctx context.Context, f entity.PostFilter) ([]*entity.Post, int, error)
}

// PostsForDay returns every post whose incident date falls on day, oldest first.
func PostsForDay(ctx context.Context, lister PostLister, day time.Time) ([]*entity.Post, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var out []*entity.Post
	for offset := 0; ; {
		batch, total, err := lister.ListPosts(ctx, entity.PostFilter{DateFrom: &from, DateTo: &from, Limit: 100, Offset: offset})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		offset += len(batch)
		if len(batch) == 0 || offset >= total {
			break
		}
	}
	// listings are newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
