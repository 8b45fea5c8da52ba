// Gói githubapi cung cấp một caller cho GitHub GraphQL API.
// Caller chịu trách nhiệm thực hiện yêu cầu search theo trang (cursor),
// probe đếm kết quả, và phân loại lỗi phản hồi.

package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/pkg/log"
)

// SearchClient là ranh giới API mà partitioner và fetcher làm việc qua
type SearchClient interface {
	// Search lấy một trang kết quả, cursor rỗng nghĩa là trang đầu
	Search(ctx context.Context, query string, pageSize int, cursor string) (*SearchPage, error)
	// Count probe số lượng kết quả khớp query mà không lấy nội dung
	Count(ctx context.Context, query string) (int, error)
}

const searchQuery = `
query($searchQuery: String!, $pageSize: Int!, $afterCursor: String) {
	rateLimit {
		limit
		cost
		remaining
		resetAt
	}
	search(query: $searchQuery, type: REPOSITORY, first: $pageSize, after: $afterCursor) {
		repositoryCount
		pageInfo {
			hasNextPage
			endCursor
		}
		nodes {
			... on Repository {
				id
				nameWithOwner
				stargazerCount
				primaryLanguage {
					name
				}
				createdAt
				updatedAt
			}
		}
	}
}`

type Caller struct {
	Logger log.Logger
	Config *cfg.Config
	client *http.Client
}

func NewCaller(logger log.Logger, config *cfg.Config) *Caller {
	return &Caller{
		Logger: logger,
		Config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data struct {
		RateLimit RateLimit `json:"rateLimit"`
		Search    struct {
			RepositoryCount int      `json:"repositoryCount"`
			PageInfo        PageInfo `json:"pageInfo"`
			Nodes           []RepoNode `json:"nodes"`
		} `json:"search"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func (c *Caller) Search(ctx context.Context, query string, pageSize int, cursor string) (*SearchPage, error) {
	vars := map[string]interface{}{
		"searchQuery": query,
		"pageSize":    pageSize,
	}
	if cursor != "" {
		vars["afterCursor"] = cursor
	} else {
		vars["afterCursor"] = nil
	}
	return c.do(ctx, vars)
}

func (c *Caller) Count(ctx context.Context, query string) (int, error) {
	// Probe rẻ: chỉ lấy 1 item, đọc repositoryCount
	vars := map[string]interface{}{
		"searchQuery": query,
		"pageSize":    1,
		"afterCursor": nil,
	}
	page, err := c.do(ctx, vars)
	if err != nil {
		return 0, err
	}
	return page.RepositoryCount, nil
}

func (c *Caller) do(ctx context.Context, vars map[string]interface{}) (*SearchPage, error) {
	if c.Config.GithubApi.AccessToken == "" {
		return nil, &APIError{
			Kind:    KindFatal,
			Status:  http.StatusUnauthorized,
			Message: "no access token configured",
		}
	}

	body, err := json.Marshal(graphqlRequest{Query: searchQuery, Variables: vars})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.GithubApi.GraphqlUrl, bytes.NewReader(body))
	if err != nil {
		c.Logger.Error(ctx, "Cannot build request: %v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Config.GithubApi.AccessToken))

	// Thực hiện request
	resp, err := c.client.Do(req)
	if err != nil {
		c.Logger.Error(ctx, "Cannot send request: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if apiErr := c.classifyStatus(resp); apiErr != nil {
		c.Logger.Warn(ctx, "GitHub API returned status %d: %s", resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}

	// Giải mã phản hồi
	raw := &graphqlResponse{}
	if err := json.NewDecoder(resp.Body).Decode(raw); err != nil {
		return nil, &APIError{Kind: KindTransient, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}

	if len(raw.Errors) > 0 {
		return nil, c.classifyGraphqlErrors(raw)
	}

	page := &SearchPage{
		RepositoryCount: raw.Data.Search.RepositoryCount,
		PageInfo:        raw.Data.Search.PageInfo,
		Nodes:           raw.Data.Search.Nodes,
		RateLimit:       raw.Data.RateLimit,
	}

	c.Logger.Debug(ctx, "Search ok: count=%d items=%d remaining=%d",
		page.RepositoryCount, len(page.Nodes), page.RateLimit.Remaining)

	return page, nil
}

// classifyStatus ánh xạ HTTP status sang taxonomy lỗi. Trả về nil nếu 200.
func (c *Caller) classifyStatus(resp *http.Response) *APIError {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	msg := readBodyPrefix(resp.Body)

	// Rate limit: 429, hoặc 403 với ngân sách đã cạn
	if resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0") {
		apiErr := &APIError{
			Kind:    KindRateLimited,
			Status:  resp.StatusCode,
			Message: msg,
		}
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
				apiErr.ResetAt = time.Unix(unix, 0)
			}
		}
		return apiErr
	}

	// Credential hỏng hoặc query sai không sửa được bằng retry
	if resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusUnprocessableEntity ||
		resp.StatusCode == http.StatusBadRequest {
		return &APIError{Kind: KindFatal, Status: resp.StatusCode, Message: msg}
	}

	return &APIError{Kind: KindTransient, Status: resp.StatusCode, Message: msg}
}

func (c *Caller) classifyGraphqlErrors(raw *graphqlResponse) *APIError {
	for _, e := range raw.Errors {
		if e.Type == "RATE_LIMITED" {
			apiErr := &APIError{
				Kind:    KindRateLimited,
				Status:  http.StatusOK,
				Message: e.Message,
			}
			if !raw.Data.RateLimit.ResetAt.IsZero() {
				apiErr.ResetAt = raw.Data.RateLimit.ResetAt
			}
			return apiErr
		}
	}
	// Lỗi GraphQL khác là query hỏng
	return &APIError{
		Kind:    KindFatal,
		Status:  http.StatusOK,
		Message: fmt.Sprintf("graphql error: %s", raw.Errors[0].Message),
	}
}

func readBodyPrefix(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
