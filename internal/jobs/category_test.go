package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryForScore_Thresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  Category
	}{
		{100, CategoryMatch},
		{95, CategoryMatch},
		{81, CategoryMatch},
		{80, CategoryReview},
		{70, CategoryReview},
		{60, CategoryReview},
		{59, CategoryRejected},
		{1, CategoryRejected},
		{0, CategoryRejected},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CategoryForScore(tc.score), "score %d", tc.score)
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	for _, c := range Categories() {
		parsed, err := ParseCategory(string(c))
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}

	_, err := ParseCategory("Archived")
	require.Error(t, err)
}

func TestScrapeRequest_Query(t *testing.T) {
	t.Parallel()

	require.Equal(t, "golang backend", ScrapeRequest{Keywords: " golang backend "}.Query())
	require.Equal(t, "Tech Developer", ScrapeRequest{Sector: "Tech", JobFunction: "Developer"}.Query())
	require.Equal(t, "Tech", ScrapeRequest{Sector: "Tech"}.Query())
	require.Equal(t, "Emploi", ScrapeRequest{}.Query())
}
