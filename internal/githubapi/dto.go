// Gói dto cung cấp các đối tượng truyền dữ liệu cho dự án
// Chuyển đổi phản hồi GraphQL search của GitHub thành cấu trúc Go

package githubapi

import "time"

type Language struct {
	Name string `json:"name"`
}

type RepoNode struct {
	ID              string    `json:"id"`
	NameWithOwner   string    `json:"nameWithOwner"`
	StargazerCount  int       `json:"stargazerCount"`
	PrimaryLanguage Language  `json:"primaryLanguage"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// RateLimit là ngân sách còn lại của tài khoản, trả về trong mỗi phản hồi
type RateLimit struct {
	Limit     int       `json:"limit"`
	Cost      int       `json:"cost"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// SearchPage là một trang kết quả tìm kiếm cùng trạng thái phân trang
type SearchPage struct {
	RepositoryCount int
	PageInfo        PageInfo
	Nodes           []RepoNode
	RateLimit       RateLimit
}
