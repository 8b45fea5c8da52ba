// Partitioner chia dải ngày tìm kiếm thành các cửa sổ đủ nhỏ để số kết quả
// thật của mỗi cửa sổ nằm dưới giới hạn 1000 kết quả của search API.
// Cửa sổ nào probe vượt cap thì bisect tại ngày giữa, dùng stack tường minh
// thay vì đệ quy để ghép tự nhiên với queue của worker pool.

package crawler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/internal/limiter"
	"github.com/edisonbui/star-crawler/pkg/log"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusOverflowed Status = "overflowed"
)

// Partition là một sub-query của toàn bộ không gian tìm kiếm, giới hạn
// trong một cửa sổ ngày tạo [Start, End] (bao gồm cả hai đầu).
type Partition struct {
	Criteria githubapi.SearchCriteria
	Start    time.Time
	End      time.Time

	// Trạng thái mutable, chỉ worker đang sở hữu partition được chạm vào
	Cursor  string
	Fetched int
	Status  Status
	Err     error

	// Saturated đánh dấu cửa sổ một ngày mà số kết quả thật vẫn vượt cap:
	// không thể bisect thêm, fetcher chấp nhận cắt tại cap
	Saturated bool
}

// Window trả về nhãn "2024-01-01..2024-06-30" dùng cho log và summary
func (p *Partition) Window() string {
	return fmt.Sprintf("%s..%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Query trả về chuỗi search query của partition này
func (p *Partition) Query() string {
	return p.Criteria.WithWindow(p.Start, p.End).QueryString()
}

// CanBisect báo cửa sổ còn chia đôi được nữa không (tối thiểu một ngày)
func (p *Partition) CanBisect() bool {
	return p.End.Sub(p.Start) >= 24*time.Hour
}

// Bisect chia cửa sổ tại ngày giữa thành hai nửa không chồng lấn, phủ kín
// cửa sổ gốc. Hai partition con thay thế partition gốc trong queue.
func (p *Partition) Bisect() (*Partition, *Partition) {
	if !p.CanBisect() {
		return nil, nil
	}
	mid := p.Start.Add(p.End.Sub(p.Start) / 2).Truncate(24 * time.Hour)
	if mid.Before(p.Start) {
		mid = p.Start
	}
	left := &Partition{Criteria: p.Criteria, Start: p.Start, End: mid, Status: StatusPending}
	right := &Partition{Criteria: p.Criteria, Start: mid.AddDate(0, 0, 1), End: p.End, Status: StatusPending}
	return left, right
}

// Partitioner sinh dãy partition phủ kín một dải ngày, theo thứ tự
// thời gian tăng dần, không trùng và không hở.
type Partitioner struct {
	Logger     log.Logger
	Client     githubapi.SearchClient
	Budget     *limiter.Budget
	Criteria   githubapi.SearchCriteria
	Cap        int
	MaxRetries int
	Backoff    time.Duration
}

func NewPartitioner(logger log.Logger, client githubapi.SearchClient, budget *limiter.Budget, criteria githubapi.SearchCriteria, cap, maxRetries int) *Partitioner {
	return &Partitioner{
		Logger:     logger,
		Client:     client,
		Budget:     budget,
		Criteria:   criteria,
		Cap:        cap,
		MaxRetries: maxRetries,
		Backoff:    2 * time.Second,
	}
}

// Partition chia [start, end] thành các cửa sổ có count <= Cap.
// Lỗi probe sau khi hết retry làm hỏng cả run thay vì bỏ qua cửa sổ,
// vì bỏ qua sẽ âm thầm thiếu kết quả.
func (pt *Partitioner) Partition(ctx context.Context, start, end time.Time) ([]*Partition, error) {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	if end.Before(start) {
		return nil, fmt.Errorf("empty date range %s..%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	var out []*Partition

	// Stack tường minh các cửa sổ chờ probe
	stack := []*Partition{{Criteria: pt.Criteria, Start: start, End: end, Status: StatusPending}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count, err := pt.probeCount(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("probe count for window %s: %w", p.Window(), err)
		}

		if count <= pt.Cap {
			out = append(out, p)
			continue
		}

		if !p.CanBisect() {
			// Một ngày vẫn vượt cap: phát ra luôn, fetcher sẽ cắt tại cap.
			// Thứ tự kết quả của API (stars giảm dần) quyết định phần giữ lại.
			p.Saturated = true
			pt.Logger.Warn(ctx, "Window %s has %d matches, over the %d cap at one-day granularity, accepting truncation", p.Window(), count, pt.Cap)
			out = append(out, p)
			continue
		}

		left, right := p.Bisect()
		pt.Logger.Debug(ctx, "Window %s has %d matches (> %d), bisecting into %s and %s", p.Window(), count, pt.Cap, left.Window(), right.Window())
		stack = append(stack, right, left)
	}

	// Oldest-first để pipeline resume được theo mốc ngày
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	return out, nil
}

func (pt *Partitioner) probeCount(ctx context.Context, p *Partition) (int, error) {
	var count int
	err := retryCall(ctx, pt.Logger, pt.Budget, pt.MaxRetries, pt.Backoff, func(ctx context.Context) error {
		n, err := pt.Client.Count(ctx, p.Query())
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return count, err
}
