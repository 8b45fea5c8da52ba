package model

import (
	"time"

	"github.com/edisonbui/star-crawler/internal/githubapi"
)

// RepoMessage là cấu trúc dữ liệu Repository truyền giữa fetcher, Kafka
// và persistence layer
type RepoMessage struct {
	RemoteID      string    `json:"remote_id"`
	User          string    `json:"user"`
	Name          string    `json:"name"`
	StarCount     int       `json:"star_count"`
	Language      string    `json:"language"`
	RepoCreatedAt time.Time `json:"repo_created_at"`
	RepoUpdatedAt time.Time `json:"repo_updated_at"`
}

// MessageFromNode chuyển một node từ search API thành message
func MessageFromNode(n githubapi.RepoNode) RepoMessage {
	user, name := SplitNameWithOwner(n.NameWithOwner)
	return RepoMessage{
		RemoteID:      n.ID,
		User:          user,
		Name:          name,
		StarCount:     n.StargazerCount,
		Language:      n.PrimaryLanguage.Name,
		RepoCreatedAt: n.CreatedAt,
		RepoUpdatedAt: n.UpdatedAt,
	}
}

// MessagesFromNodes chuyển một trang node thành batch message
func MessagesFromNodes(nodes []githubapi.RepoNode) []RepoMessage {
	msgs := make([]RepoMessage, 0, len(nodes))
	for _, n := range nodes {
		msgs = append(msgs, MessageFromNode(n))
	}
	return msgs
}
