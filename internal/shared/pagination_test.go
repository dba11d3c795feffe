package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name               string
		page, limit, total int
		want               Pagination
	}{
		{name: "exact", page: 1, limit: 10, total: 30, want: Pagination{Page: 1, Limit: 10, Total: 30, TotalPages: 3}},
		{name: "remainder", page: 2, limit: 10, total: 31, want: Pagination{Page: 2, Limit: 10, Total: 31, TotalPages: 4}},
		{name: "empty", page: 1, limit: 10, total: 0, want: Pagination{Page: 1, Limit: 10, TotalPages: 0}},
		{name: "defaults", page: 0, limit: 0, total: 5, want: Pagination{Page: 1, Limit: 20, Total: 5, TotalPages: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NewPagination(tc.page, tc.limit, tc.total))
		})
	}
}

func TestParsePageQuery(t *testing.T) {
	q := ParsePageQuery(url.Values{}, "displayOrder", 100)
	require.Equal(t, PageQuery{Page: 1, Limit: 10, SortBy: "displayOrder", SortOrder: SortAsc}, q)
	require.Zero(t, q.Offset())

	q = ParsePageQuery(url.Values{
		"page":      {"3"},
		"limit":     {"500"},
		"sortBy":    {" name "},
		"sortOrder": {"DESC"},
	}, "displayOrder", 100)
	require.Equal(t, PageQuery{Page: 3, Limit: 100, SortBy: "name", SortOrder: SortDesc}, q)
	require.Equal(t, 200, q.Offset())

	q = ParsePageQuery(url.Values{"page": {"-1"}, "limit": {"abc"}, "sortOrder": {"sideways"}}, "id", 0)
	require.Equal(t, PageQuery{Page: 1, Limit: 10, SortBy: "id", SortOrder: SortAsc}, q)
}

func TestActorContext(t *testing.T) {
	ctx := ContextWithActor(t.Context(), Actor{ID: "7", Username: "manager"})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "manager", actor.Username)
	require.Equal(t, "7", ActorID(ctx))

	_, ok = ActorFromContext(ContextWithActor(t.Context(), Actor{Username: "ghost"}))
	require.False(t, ok)
	require.Empty(t, ActorID(t.Context()))
}
