package githubapi

import (
	"fmt"
	"strings"
	"time"
)

// SearchCriteria mô tả bộ lọc tìm kiếm repository
type SearchCriteria struct {
	Language      string
	MinStars      int
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Keywords      []string
	SortBy        string // "stars", "updated", "created", "forks" hoặc rỗng
}

// QueryString builds the GitHub search qualifier string, e.g.
// "language:go stars:>=10 created:2024-01-01..2024-12-31"
func (c SearchCriteria) QueryString() string {
	parts := make([]string, 0, 5)

	parts = append(parts, c.Keywords...)

	if c.Language != "" {
		parts = append(parts, fmt.Sprintf("language:%s", c.Language))
	}

	if c.MinStars > 0 {
		parts = append(parts, fmt.Sprintf("stars:>=%d", c.MinStars))
	}

	switch {
	case !c.CreatedAfter.IsZero() && !c.CreatedBefore.IsZero():
		parts = append(parts, fmt.Sprintf("created:%s..%s",
			c.CreatedAfter.Format("2006-01-02"), c.CreatedBefore.Format("2006-01-02")))
	case !c.CreatedAfter.IsZero():
		parts = append(parts, fmt.Sprintf("created:>%s", c.CreatedAfter.Format("2006-01-02")))
	case !c.CreatedBefore.IsZero():
		parts = append(parts, fmt.Sprintf("created:<%s", c.CreatedBefore.Format("2006-01-02")))
	}

	if c.SortBy != "" && !strings.EqualFold(c.SortBy, "none") {
		parts = append(parts, fmt.Sprintf("sort:%s", c.SortBy))
	}

	return strings.Join(parts, " ")
}

// WithWindow trả về một bản sao criteria giới hạn trong một cửa sổ ngày tạo
func (c SearchCriteria) WithWindow(start, end time.Time) SearchCriteria {
	c.CreatedAfter = start
	c.CreatedBefore = end
	return c
}
