// Gói limiter theo dõi ngân sách gọi API dùng chung cho cả tài khoản.
// Ngân sách là account-wide chứ không phải per-connection, nên chỉ có
// một counter duy nhất được bảo vệ bằng mutex, cập nhật từ mọi phản hồi.

package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/edisonbui/star-crawler/pkg/metrics"
	"golang.org/x/time/rate"
)

// headroom giữ lại một ít ngân sách để các worker đang bay không vượt hạn mức
const headroom = 2

type Budget struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	known     bool

	// Làm mượt cục bộ: không bắn request dồn dập dù ngân sách còn nhiều
	smooth *rate.Limiter

	// chặn trên cho một lần chờ, phòng resetAt sai lệch quá xa
	defaultWait time.Duration
}

func NewBudget(requestsPerSecond int, defaultWait time.Duration) *Budget {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	if defaultWait <= 0 {
		defaultWait = time.Minute
	}
	return &Budget{
		smooth:      rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		defaultWait: defaultWait,
	}
}

// Update ghi nhận trạng thái ngân sách từ một phản hồi API
func (b *Budget) Update(remaining int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = remaining
	b.resetAt = resetAt
	b.known = true
}

// Acquire chặn caller cho tới khi được phép gọi API: chờ smoothing trước,
// rồi chờ ngân sách reset nếu đã cạn. Không bao giờ busy-spin, và không
// giữ lock trong lúc chờ.
func (b *Budget) Acquire(ctx context.Context) error {
	if err := b.smooth.Wait(ctx); err != nil {
		return err
	}

	for {
		b.mu.Lock()
		if !b.known || b.remaining > headroom {
			b.mu.Unlock()
			return nil
		}
		wait := time.Until(b.resetAt)
		if wait <= 0 {
			// Reset đã qua, snapshot chỉ là dữ liệu cũ: cho đi tiếp,
			// phản hồi kế tiếp sẽ cập nhật trạng thái thật
			b.known = false
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		if wait > b.defaultWait {
			wait = b.defaultWait
		}

		metrics.RateLimitWaits.Inc()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		// Sau reset coi như chưa biết trạng thái, phản hồi kế tiếp sẽ cập nhật
		b.mu.Lock()
		b.known = false
		b.mu.Unlock()
	}
}

// AdvisedWait trả về thời gian còn lại tới lúc reset, 0 nếu chưa biết
func (b *Budget) AdvisedWait() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.known {
		return 0
	}
	if wait := time.Until(b.resetAt); wait > 0 {
		return wait
	}
	return 0
}

// Remaining trả về ngân sách còn lại đã biết gần nhất
func (b *Budget) Remaining() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining, b.known
}
