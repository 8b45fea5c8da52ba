package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edisonbui/star-crawler/internal/githubapi"
)

// fakeClient mô phỏng search API trên một tập repository cố định: Count và
// Search lọc theo qualifier created:A..B trong query, phân trang bằng cursor
// là offset. Hành vi overflow/bisect của crawler nhờ vậy nổi lên tự nhiên
// từ phân bố ngày tạo của dữ liệu test.
type fakeClient struct {
	mu          sync.Mutex
	repos       []githubapi.RepoNode
	searchErr   error
	countErr    error
	remaining   int
	countCalls  int
	searchCalls int
}

func newFakeClient(repos ...githubapi.RepoNode) *fakeClient {
	return &fakeClient{repos: repos, remaining: 4000}
}

func repoAt(id, createdAt string, stars int) githubapi.RepoNode {
	t, err := time.Parse("2006-01-02", createdAt)
	if err != nil {
		panic(err)
	}
	return githubapi.RepoNode{
		ID:              id,
		NameWithOwner:   fmt.Sprintf("owner/%s", id),
		StargazerCount:  stars,
		PrimaryLanguage: githubapi.Language{Name: "Go"},
		CreatedAt:       t,
		UpdatedAt:       t,
	}
}

func parseWindow(query string) (time.Time, time.Time, bool) {
	for _, part := range strings.Fields(query) {
		if !strings.HasPrefix(part, "created:") {
			continue
		}
		bounds := strings.SplitN(strings.TrimPrefix(part, "created:"), "..", 2)
		if len(bounds) != 2 {
			return time.Time{}, time.Time{}, false
		}
		start, err1 := time.Parse("2006-01-02", bounds[0])
		end, err2 := time.Parse("2006-01-02", bounds[1])
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, false
		}
		return start, end, true
	}
	return time.Time{}, time.Time{}, false
}

func (f *fakeClient) matches(query string) []githubapi.RepoNode {
	start, end, ok := parseWindow(query)
	var out []githubapi.RepoNode
	for _, r := range f.repos {
		if !ok || (!r.CreatedAt.Before(start) && !r.CreatedAt.After(end)) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeClient) Count(ctx context.Context, query string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.matches(query)), nil
}

func (f *fakeClient) Search(ctx context.Context, query string, pageSize int, cursor string) (*githubapi.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	all := f.matches(query)
	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}

	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	var nodes []githubapi.RepoNode
	if offset < len(all) {
		nodes = all[offset:end]
	}

	return &githubapi.SearchPage{
		RepositoryCount: len(all),
		PageInfo: githubapi.PageInfo{
			HasNextPage: end < len(all),
			EndCursor:   strconv.Itoa(end),
		},
		Nodes: nodes,
		RateLimit: githubapi.RateLimit{
			Limit:     5000,
			Cost:      1,
			Remaining: f.remaining,
			ResetAt:   time.Now().Add(time.Hour),
		},
	}, nil
}

// recordingSink ghi lại mọi node đã persist, đếm số lần thấy mỗi remote id
type recordingSink struct {
	mu   sync.Mutex
	seen map[string]int
	err  error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{seen: make(map[string]int)}
}

func (s *recordingSink) Persist(ctx context.Context, nodes []githubapi.RepoNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, n := range nodes {
		s.seen[n.ID]++
	}
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.seen {
		n += c
	}
	return n
}

func (s *recordingSink) duplicates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dups []string
	for id, c := range s.seen {
		if c > 1 {
			dups = append(dups, id)
		}
	}
	return dups
}
