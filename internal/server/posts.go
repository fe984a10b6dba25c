package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type postsPage struct {
	Posts      []*entity.Post `json:"posts"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

// intParam returns the query value as an int, or def when absent or malformed.
func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return n
}

func postFilterFromQuery(r *http.Request) (entity.PostFilter, int, int, error) {
	q := r.URL.Query()
	county := strings.TrimSpace(q.Get("county"))
	agencyType := strings.TrimSpace(q.Get("agency_type"))
	from := strings.TrimSpace(q.Get("date_from"))
	to := strings.TrimSpace(q.Get("date_to"))
	search := strings.TrimSpace(q.Get("search"))

	v := common.NewValidator().
		Field("county", county, common.MaxLength(64)).
		Field("agency_type", agencyType, common.OneOf(constants.AgencyTypes()...)).
		Field("date_from", from, common.ISODate).
		Field("date_to", to, common.ISODate).
		Field("search", search, common.MaxLength(200))
	if err := v.Error(); err != nil {
		return entity.PostFilter{}, 0, 0, err
	}

	page := max(1, intParam(r, "page", 1))
	perPage := min(maxPerPage, max(1, intParam(r, "per_page", defaultPerPage)))

	f := entity.PostFilter{
		County:     county,
		AgencyType: agencyType,
		Search:     search,
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	}
	if from != "" {
		t, _ := time.Parse(time.DateOnly, from)
		f.DateFrom = &t
	}
	if to != "" {
		t, _ := time.Parse(time.DateOnly, to)
		f.DateTo = &t
	}
	return f, page, perPage, nil
}

func (a *API) handleListPosts(w http.ResponseWriter, r *http.Request) {
	f, page, perPage, err := postFilterFromQuery(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	posts, total, err := a.posts.ListPosts(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postsPage{
		Posts:      nonNil(posts),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: max(1, (total+perPage-1)/perPage),
	})
}

func (a *API) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	post, err := a.posts.GetPost(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *API) handleCounties(w http.ResponseWriter, r *http.Request) {
	counties, err := a.posts.Counties(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counties": nonNil(counties)})
}

func (a *API) handleAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := a.posts.Agencies(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agencies": nonNil(agencies)})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
