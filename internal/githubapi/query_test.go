package githubapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestQueryString(t *testing.T) {
	cases := []struct {
		name     string
		criteria SearchCriteria
		want     string
	}{
		{
			name:     "empty criteria",
			criteria: SearchCriteria{},
			want:     "",
		},
		{
			name:     "language only",
			criteria: SearchCriteria{Language: "go"},
			want:     "language:go",
		},
		{
			name:     "language and min stars",
			criteria: SearchCriteria{Language: "python", MinStars: 100},
			want:     "language:python stars:>=100",
		},
		{
			name: "full window",
			criteria: SearchCriteria{
				Language:      "go",
				MinStars:      10,
				CreatedAfter:  day("2024-01-01"),
				CreatedBefore: day("2024-06-30"),
			},
			want: "language:go stars:>=10 created:2024-01-01..2024-06-30",
		},
		{
			name:     "open-ended after",
			criteria: SearchCriteria{Language: "rust", CreatedAfter: day("2023-05-01")},
			want:     "language:rust created:>2023-05-01",
		},
		{
			name:     "open-ended before",
			criteria: SearchCriteria{Language: "rust", CreatedBefore: day("2023-05-01")},
			want:     "language:rust created:<2023-05-01",
		},
		{
			name:     "keywords lead the query",
			criteria: SearchCriteria{Keywords: []string{"kubernetes", "operator"}, Language: "go"},
			want:     "kubernetes operator language:go",
		},
		{
			name:     "sort qualifier",
			criteria: SearchCriteria{Language: "go", SortBy: "stars"},
			want:     "language:go sort:stars",
		},
		{
			name:     "sort none is omitted",
			criteria: SearchCriteria{Language: "go", SortBy: "none"},
			want:     "language:go",
		},
		{
			name:     "zero min stars is omitted",
			criteria: SearchCriteria{Language: "go", MinStars: 0},
			want:     "language:go",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.criteria.QueryString())
		})
	}
}

func TestWithWindowDoesNotMutateReceiver(t *testing.T) {
	base := SearchCriteria{Language: "go", MinStars: 5}
	windowed := base.WithWindow(day("2024-01-01"), day("2024-12-31"))

	assert.True(t, base.CreatedAfter.IsZero())
	assert.True(t, base.CreatedBefore.IsZero())
	assert.Equal(t, "language:go stars:>=5 created:2024-01-01..2024-12-31", windowed.QueryString())
}
