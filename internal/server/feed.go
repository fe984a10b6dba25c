package server

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

const (
	feedSize       = 20
	feedSummaryLen = 300
	atomNS         = "http://www.w3.org/2005/Atom"
)

type atomFeed struct {
	XMLName  xml.Name    `xml:"feed"`
	NS       string      `xml:"xmlns,attr"`
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle"`
	Links    []atomLink  `xml:"link"`
	ID       string      `xml:"id"`
	Updated  string      `xml:"updated"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Link    atomLink   `xml:"link"`
	ID      string     `xml:"id"`
	Updated string     `xml:"updated"`
	Author  atomAuthor `xml:"author"`
	Summary atomText   `xml:"summary"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomText struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

// entryTime is midnight UTC of the incident date, or the creation time when
// the incident date does not parse.
func entryTime(p *entity.Post) time.Time {
	if t, ok := normalize.ParseDate(p.IncidentDate); ok {
		return t.UTC()
	}
	return p.CreatedAt.UTC()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (a *API) baseURL(r *http.Request) string {
	if a.cfg.PublicBaseURL != "" {
		return strings.TrimRight(a.cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (a *API) buildFeed(base string, posts []*entity.Post) atomFeed {
	sort.SliceStable(posts, func(i, j int) bool {
		return entryTime(posts[i]).After(entryTime(posts[j]))
	})

	self := base + "/feed.xml"
	feed := atomFeed{
		NS:       atomNS,
		Title:    "Montana Blotter – Daily Activity Reports",
		Subtitle: "Summarized police blotters from Montana law enforcement agencies",
		Links:    []atomLink{{Href: self, Rel: "self"}, {Href: base + "/"}},
		ID:       self,
		Updated:  a.now().UTC().Format(time.RFC3339),
	}
	if len(posts) > 0 {
		feed.Updated = entryTime(posts[0]).Format(time.RFC3339)
	}

	for _, p := range posts {
		updated := entryTime(p)
		agency := firstNonEmpty(p.AgencyName, "Montana Blotter")
		link := base + "/?" + url.Values{
			"date":   {updated.Format(time.DateOnly)},
			"agency": {agency},
			"post":   {p.ID.String()},
		}.Encode()
		feed.Entries = append(feed.Entries, atomEntry{
			Title:   firstNonEmpty(p.Title, "Daily Activity Report"),
			Link:    atomLink{Href: link},
			ID:      "urn:uuid:" + p.ID.String(),
			Updated: updated.Format(time.RFC3339),
			Author:  atomAuthor{Name: agency},
			Summary: atomText{Type: "text", Body: truncateRunes(p.Summary, feedSummaryLen)},
		})
	}
	return feed
}

func (a *API) handleFeed(w http.ResponseWriter, r *http.Request) {
	posts, _, err := a.posts.ListPosts(r.Context(), entity.PostFilter{Limit: feedSize})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := xml.MarshalIndent(a.buildFeed(a.baseURL(r), posts), "", "  ")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
