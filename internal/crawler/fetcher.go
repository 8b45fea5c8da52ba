// Fetcher thực hiện một truy vấn cửa sổ và đi hết các trang của nó theo
// cursor. Lỗi transient được retry với backoff trên cùng một trang (cursor
// không đổi); lỗi fatal đánh dấu partition failed ngay và nổi lên Controller.

package crawler

import (
	"context"
	"time"

	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/internal/limiter"
	"github.com/edisonbui/star-crawler/pkg/log"
	"github.com/edisonbui/star-crawler/pkg/metrics"
)

// FetchResult là tập kết quả đầy đủ của một partition, hoặc tín hiệu
// overflow khi số kết quả thật vượt cap giữa chừng.
type FetchResult struct {
	Nodes []githubapi.RepoNode

	// Overflowed: cap bão hòa mà API vẫn còn trang — partition phải được
	// thay bằng hai partition con, kết quả cắt dở không được persist
	Overflowed bool

	// Truncated: cửa sổ một ngày đã biết vượt cap, chấp nhận cắt tại cap
	Truncated bool
}

type Fetcher struct {
	Logger     log.Logger
	Client     githubapi.SearchClient
	Budget     *limiter.Budget
	PageSize   int
	MaxRetries int
	Cap        int
	Backoff    time.Duration
}

func NewFetcher(logger log.Logger, client githubapi.SearchClient, budget *limiter.Budget, pageSize, maxRetries, cap int) *Fetcher {
	return &Fetcher{
		Logger:     logger,
		Client:     client,
		Budget:     budget,
		PageSize:   pageSize,
		MaxRetries: maxRetries,
		Cap:        cap,
		Backoff:    2 * time.Second,
	}
}

// Fetch đi hết các trang của một partition. Khi trả về không lỗi và không
// overflow, Nodes là tập khớp đầy đủ của cửa sổ, không trùng lặp vì cursor
// chỉ tiến về phía trước.
func (f *Fetcher) Fetch(ctx context.Context, p *Partition) (*FetchResult, error) {
	p.Status = StatusInProgress
	query := p.Query()
	result := &FetchResult{}

	for {
		var page *githubapi.SearchPage
		err := retryCall(ctx, f.Logger, f.Budget, f.MaxRetries, f.Backoff, func(ctx context.Context) error {
			pg, err := f.Client.Search(ctx, query, f.PageSize, p.Cursor)
			if err != nil {
				return err
			}
			page = pg
			return nil
		})
		if err != nil {
			p.Status = StatusFailed
			p.Err = err
			return nil, err
		}

		f.Budget.Update(page.RateLimit.Remaining, page.RateLimit.ResetAt)
		metrics.PagesFetched.Inc()

		result.Nodes = append(result.Nodes, page.Nodes...)
		p.Fetched += len(page.Nodes)

		if !page.PageInfo.HasNextPage {
			break
		}

		if p.Fetched >= f.Cap {
			if p.Saturated {
				// Đã biết không thể chia nhỏ hơn, giữ phần đầu theo thứ tự API
				result.Truncated = true
				f.Logger.Warn(ctx, "Window %s truncated at %d results", p.Window(), p.Fetched)
				break
			}
			// Cap bão hòa mà vẫn còn trang: cửa sổ phải được bisect,
			// không persist kết quả cắt dở
			p.Status = StatusOverflowed
			result.Overflowed = true
			f.Logger.Info(ctx, "Window %s overflowed the %d cap, will bisect", p.Window(), f.Cap)
			return result, nil
		}

		p.Cursor = page.PageInfo.EndCursor
	}

	p.Status = StatusDone
	f.Logger.Debug(ctx, "Window %s fetched %d repositories", p.Window(), len(result.Nodes))
	return result, nil
}

// retryCall chạy op với ngân sách rate-limit và retry có backoff mũ.
// Phân loại lỗi quyết định mọi thứ: transient đếm vào budget retry,
// rate-limited chờ theo thời gian server gợi ý mà không tốn lượt retry,
// fatal trả về ngay.
func retryCall(ctx context.Context, logger log.Logger, budget *limiter.Budget, maxRetries int, backoff time.Duration, op func(context.Context) error) error {
	attempts := 0
	for {
		if budget != nil {
			if err := budget.Acquire(ctx); err != nil {
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		kind := githubapi.Classify(err)
		if kind == githubapi.KindFatal {
			return err
		}

		if kind == githubapi.KindRateLimited {
			if wait, ok := githubapi.AdvisedWait(err); ok {
				// Server nói rõ thời gian chờ: không tính vào budget retry
				metrics.RateLimitWaits.Inc()
				logger.Warn(ctx, "Rate limit hit, waiting %v before next attempt", wait.Round(time.Second))
				if err := sleepCtx(ctx, wait); err != nil {
					return err
				}
				continue
			}
		}

		attempts++
		metrics.RetriesTotal.Inc()
		if attempts >= maxRetries {
			logger.Error(ctx, "Giving up after %d attempts: %v", attempts, err)
			return err
		}

		delay := backoff * time.Duration(1<<(attempts-1))
		logger.Warn(ctx, "Transient failure (attempt %d/%d), retrying in %v: %v", attempts, maxRetries, delay, err)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
