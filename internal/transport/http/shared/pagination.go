package shared

import (
	"net/http"
	"strconv"

	"trainerleave/internal/domain/leave"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParsePage reads limit and offset. Malformed values fall back to the defaults
// and limit is clamped to MaxPageLimit.
func ParsePage(r *http.Request) leave.Page {
	page := leave.Page{Limit: DefaultPageLimit}
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		page.Limit = min(v, MaxPageLimit)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		page.Offset = v
	}
	return page
}
