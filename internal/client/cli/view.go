package cli

import (
	"strings"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
)

const pageSize = 5

// ViewState is the presentation state of the list command.
type ViewState struct {
	Query string
	Page  int
}

// Filter keeps records whose name or description contains query, ignoring
// case. An empty query keeps everything.
func Filter(recs []models.Record, query string) []models.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return recs
	}
	out := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Description), q) {
			out = append(out, r)
		}
	}
	return out
}

// Paginate returns the records on page (0-based), the page after clamping and
// the number of pages, which is at least 1.
func Paginate(recs []models.Record, page int) ([]models.Record, int, int) {
	pages := (len(recs) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	start := page * pageSize
	end := min(start+pageSize, len(recs))
	return recs[start:end], page, pages
}
