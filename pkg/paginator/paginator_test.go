package paginator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, p := Page(items, Query{Page: 2, Limit: 2})
	assert.Equal(t, []int{3, 4}, got)
	assert.Equal(t, Paginator{Total: 5, Count: 2, PerPage: 2, CurrentPage: 2, TotalPages: 3, HasNext: true, HasPrev: true}, p)

	got, p = Page(items, Query{Page: 3, Limit: 2})
	assert.Equal(t, []int{5}, got)
	assert.False(t, p.HasNext)

	got, p = Page(items, Query{Page: 9, Limit: 2})
	assert.Empty(t, got)
	assert.Equal(t, 0, p.Count)
}

func TestAdjust(t *testing.T) {
	q := Query{Page: -1, Limit: 1000}
	q.Adjust()
	assert.Equal(t, Query{Page: DefaultPage, Limit: MaxLimit}, q)

	_, p := Page([]string{}, Query{})
	assert.Equal(t, DefaultLimit, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
}
