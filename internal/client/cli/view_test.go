package cli

import (
	"fmt"
	"testing"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func makeRecords(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{ID: fmt.Sprintf("record-%d", i), Name: fmt.Sprintf("name %d", i)}
	}
	return out
}

func TestFilter(t *testing.T) {
	recs := []models.Record{
		{ID: "1", Name: "Trading Bot", Description: "alpha"},
		{ID: "2", Name: "Budget", Description: "household BOT-free"},
		{ID: "3", Name: "Other", Description: "nothing"},
	}

	assert.Len(t, Filter(recs, ""), 3)
	assert.Len(t, Filter(recs, "   "), 3)

	got := Filter(recs, "bot")
	assert.Equal(t, []string{"1", "2"}, []string{got[0].ID, got[1].ID})

	assert.Empty(t, Filter(recs, "zzz"))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		n, page   int
		wantLen   int
		wantPage  int
		wantPages int
	}{
		{"empty", 0, 0, 0, 0, 1},
		{"single page", 3, 0, 3, 0, 1},
		{"full first page", 12, 0, 5, 0, 3},
		{"last partial page", 12, 2, 2, 2, 3},
		{"page past the end clamps", 12, 9, 2, 2, 3},
		{"negative page clamps", 12, -1, 5, 0, 3},
		{"exact multiple", 10, 1, 5, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, current, pages := Paginate(makeRecords(tt.n), tt.page)
			assert.Len(t, page, tt.wantLen)
			assert.Equal(t, tt.wantPage, current)
			assert.Equal(t, tt.wantPages, pages)
		})
	}
}
