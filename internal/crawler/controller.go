// Pipeline controller: máy trạng thái cấp cao nhất của một crawl run.
// idle -> partitioning -> dispatching -> waiting -> {completed | failed}.
// Mode single chạy đúng một chu kỳ trên toàn dải; mode pipeline lặp lại
// trên phần dải còn lại cho tới khi đạt target hoặc cạn không gian tìm kiếm.

package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/internal/limiter"
	"github.com/edisonbui/star-crawler/pkg/log"
)

type State string

const (
	StateIdle         State = "idle"
	StatePartitioning State = "partitioning"
	StateDispatching  State = "dispatching"
	StateWaiting      State = "waiting"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

type Mode string

const (
	ModeSingle   Mode = "single"
	ModePipeline Mode = "pipeline"
)

// WindowFailure ghi lại một cửa sổ hỏng và lý do, để lần chạy sau có thể
// nhắm đúng các cửa sổ còn thiếu
type WindowFailure struct {
	Window string `json:"window"`
	Reason string `json:"reason"`
}

// RunStats là aggregate của cả run, cập nhật khi các partition hoàn thành
type RunStats struct {
	Mode             Mode            `json:"mode"`
	State            State           `json:"state"`
	StartTime        time.Time       `json:"start_time"`
	TargetTotal      int             `json:"target_total"`
	TotalPersisted   int             `json:"total_persisted"`
	Cycles           int             `json:"cycles"`
	ConsumedWindows  []string        `json:"consumed_windows"`
	FailedWindows    []WindowFailure `json:"failed_windows"`
	TruncatedWindows []string        `json:"truncated_windows"`
}

type Controller struct {
	Logger      log.Logger
	Config      *cfg.Config
	Partitioner *Partitioner
	Pool        *Pool

	Mode       Mode
	RangeStart time.Time
	RangeEnd   time.Time

	statsMu sync.RWMutex
	stats   RunStats
}

// NewController lắp ráp budget, fetcher, partitioner và pool từ config.
func NewController(logger log.Logger, config *cfg.Config, client githubapi.SearchClient, sink Sink, mode Mode, rangeStart, rangeEnd time.Time) (*Controller, error) {
	cr := config.Crawler
	budget := limiter.NewBudget(config.GithubApi.RequestsPerSecond,
		time.Duration(config.GithubApi.RateLimitResetMin)*time.Minute)

	criteria := githubapi.SearchCriteria{
		Language: cr.Language,
		MinStars: cr.MinStars,
		Keywords: cr.Keywords,
		SortBy:   cr.SortBy,
	}

	fetcher := NewFetcher(logger, client, budget, cr.BatchSize, cr.MaxRetries, cr.QueryResultCap)
	partitioner := NewPartitioner(logger, client, budget, criteria, cr.QueryResultCap, cr.MaxRetries)
	pool := NewPool(logger, fetcher, sink, cr.NumWorkers, cr.BatchSize, cr.MaxRetries)

	return &Controller{
		Logger:      logger,
		Config:      config,
		Partitioner: partitioner,
		Pool:        pool,
		Mode:        mode,
		RangeStart:  rangeStart.Truncate(24 * time.Hour),
		RangeEnd:    rangeEnd.Truncate(24 * time.Hour),
		stats: RunStats{
			Mode:        mode,
			State:       StateIdle,
			TargetTotal: cr.TargetTotal,
		},
	}, nil
}

// Stats trả về snapshot thống kê hiện tại, an toàn để gọi từ goroutine khác
func (c *Controller) Stats() RunStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	s := c.stats
	s.ConsumedWindows = append([]string(nil), c.stats.ConsumedWindows...)
	s.FailedWindows = append([]WindowFailure(nil), c.stats.FailedWindows...)
	s.TruncatedWindows = append([]string(nil), c.stats.TruncatedWindows...)
	return s
}

func (c *Controller) setState(s State) {
	c.statsMu.Lock()
	c.stats.State = s
	c.statsMu.Unlock()
}

// Run thực thi máy trạng thái tới một trạng thái terminal. Trả về stats
// cuối cùng; err khác nil đồng nghĩa trạng thái failed và process nên
// thoát khác 0.
func (c *Controller) Run(ctx context.Context) (RunStats, error) {
	startTime := time.Now()
	c.statsMu.Lock()
	c.stats.StartTime = startTime
	c.statsMu.Unlock()

	// idle: validate tham số run
	if err := c.validate(); err != nil {
		c.setState(StateFailed)
		return c.Stats(), err
	}

	target := c.Config.Crawler.TargetTotal
	remainingStart := c.RangeStart

	for {
		c.statsMu.Lock()
		c.stats.Cycles++
		cycle := c.stats.Cycles
		c.statsMu.Unlock()

		// partitioning: chia phần dải còn lại
		c.setState(StatePartitioning)
		c.Logger.Info(ctx, "Cycle %d: partitioning %s..%s", cycle,
			remainingStart.Format("2006-01-02"), c.RangeEnd.Format("2006-01-02"))

		parts, err := c.Partitioner.Partition(ctx, remainingStart, c.RangeEnd)
		if err != nil {
			c.setState(StateFailed)
			c.logSummary(ctx, startTime)
			return c.Stats(), fmt.Errorf("partitioning failed: %w", err)
		}

		// Mode pipeline tiến qua dải theo từng khúc bị chặn
		if c.Mode == ModePipeline && len(parts) > c.Config.Crawler.PartitionsPerCycle {
			parts = parts[:c.Config.Crawler.PartitionsPerCycle]
		}

		// dispatching + waiting: giao cho pool và chặn tới khi drain
		c.setState(StateDispatching)
		c.Logger.Info(ctx, "Cycle %d: dispatching %d partitions to %d workers", cycle, len(parts), c.Pool.NumWorkers)

		c.setState(StateWaiting)
		res, fatalErr := c.Pool.Run(ctx, parts, target, c.totalPersisted())

		c.recordCycle(res)

		if fatalErr != nil {
			c.setState(StateFailed)
			c.logSummary(ctx, startTime)
			return c.Stats(), fatalErr
		}
		if ctx.Err() != nil {
			c.setState(StateFailed)
			c.logSummary(ctx, startTime)
			return c.Stats(), ctx.Err()
		}

		// Mode single: lỗi persist/retry-exhausted cũng là fail của run,
		// vì không có chu kỳ sau để bù
		if c.Mode == ModeSingle {
			if len(res.Failed) > 0 {
				c.setState(StateFailed)
				c.logSummary(ctx, startTime)
				return c.Stats(), fmt.Errorf("%d partitions failed", len(res.Failed))
			}
			c.setState(StateCompleted)
			c.logSummary(ctx, startTime)
			return c.Stats(), nil
		}

		if c.totalPersisted() >= target {
			c.setState(StateCompleted)
			c.logSummary(ctx, startTime)
			return c.Stats(), nil
		}

		// Thu hẹp dải còn lại: các cửa sổ đã tiêu thụ (kể cả failed, đã
		// được ghi lại để rerun nhắm tới) nằm ở đầu dải theo thứ tự ngày
		next, ok := c.remainingAfter(parts)
		if !ok {
			// Cạn không gian tìm kiếm
			c.setState(StateCompleted)
			c.logSummary(ctx, startTime)
			return c.Stats(), nil
		}
		remainingStart = next
	}
}

func (c *Controller) validate() error {
	if c.Config.Crawler.TargetTotal < 1 {
		return fmt.Errorf("target total must be > 0, got %d", c.Config.Crawler.TargetTotal)
	}
	if c.RangeEnd.Before(c.RangeStart) {
		return fmt.Errorf("empty date range %s..%s",
			c.RangeStart.Format("2006-01-02"), c.RangeEnd.Format("2006-01-02"))
	}
	if c.Mode != ModeSingle && c.Mode != ModePipeline {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

func (c *Controller) totalPersisted() int {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats.TotalPersisted
}

// recordCycle ghi kết quả một chu kỳ vào log mốc đã tiêu thụ
func (c *Controller) recordCycle(res *PoolResult) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	c.stats.TotalPersisted += res.Total
	for _, p := range res.Done {
		c.stats.ConsumedWindows = append(c.stats.ConsumedWindows, p.Window())
	}
	for _, p := range res.Failed {
		reason := "unknown"
		if p.Err != nil {
			reason = p.Err.Error()
		}
		c.stats.ConsumedWindows = append(c.stats.ConsumedWindows, p.Window())
		c.stats.FailedWindows = append(c.stats.FailedWindows, WindowFailure{Window: p.Window(), Reason: reason})
	}
	for _, p := range res.Truncated {
		c.stats.TruncatedWindows = append(c.stats.TruncatedWindows, p.Window())
	}
}

// remainingAfter trả về ngày bắt đầu của phần dải chưa tiêu thụ sau một
// chu kỳ, false nếu dải đã cạn.
func (c *Controller) remainingAfter(parts []*Partition) (time.Time, bool) {
	if len(parts) == 0 {
		return time.Time{}, false
	}
	// Partitions oldest-first: mốc tiếp theo là ngay sau cửa sổ cuối cùng
	// đã dispatch trong chu kỳ này
	last := parts[len(parts)-1]
	next := last.End.AddDate(0, 0, 1)
	if next.After(c.RangeEnd) {
		return time.Time{}, false
	}
	return next, true
}

func (c *Controller) logSummary(ctx context.Context, startTime time.Time) {
	s := c.Stats()
	duration := time.Since(startTime)

	c.Logger.Info(ctx, "==== CRAWL RESULT ====")
	c.Logger.Info(ctx, "Mode: %s, state: %s", s.Mode, s.State)
	c.Logger.Info(ctx, "Start: %s, duration: %v", startTime.Format(time.RFC3339), duration)
	c.Logger.Info(ctx, "Repositories persisted: %d/%d over %d cycles", s.TotalPersisted, s.TargetTotal, s.Cycles)
	c.Logger.Info(ctx, "Windows consumed: %d", len(s.ConsumedWindows))
	for _, f := range s.FailedWindows {
		c.Logger.Warn(ctx, "Failed window %s: %s", f.Window, f.Reason)
	}
	for _, w := range s.TruncatedWindows {
		c.Logger.Warn(ctx, "Truncated window %s (matches above the result cap were dropped)", w)
	}
}
