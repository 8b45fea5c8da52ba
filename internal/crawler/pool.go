// Worker pool orchestrator: N worker chạy song song trên một queue
// partition dùng chung. Lock chỉ giữ khi claim/trả partition hoặc cập nhật
// counter, không bao giờ giữ qua một network call.

package crawler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/pkg/log"
	"github.com/edisonbui/star-crawler/pkg/metrics"
)

// partitionQueue là queue partition được bảo vệ bằng mutex. Mỗi partition
// được claim bởi đúng một worker cho tới khi nó terminal hoặc overflowed.
type partitionQueue struct {
	mu    sync.Mutex
	items []*Partition
}

func newPartitionQueue(parts []*Partition) *partitionQueue {
	q := &partitionQueue{items: make([]*Partition, len(parts))}
	copy(q.items, parts)
	return q
}

func (q *partitionQueue) pop() *Partition {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p
}

func (q *partitionQueue) push(parts ...*Partition) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, parts...)
}

// PoolResult gom kết quả một lần dispatch: tổng số entity đã persist và
// danh sách partition theo trạng thái kết thúc.
type PoolResult struct {
	Total     int
	Done      []*Partition
	Failed    []*Partition
	Truncated []*Partition
}

type Pool struct {
	Logger     log.Logger
	Fetcher    *Fetcher
	Sink       Sink
	NumWorkers int
	BatchSize  int
	MaxRetries int
}

func NewPool(logger log.Logger, fetcher *Fetcher, sink Sink, numWorkers, batchSize, maxRetries int) *Pool {
	return &Pool{
		Logger:     logger,
		Fetcher:    fetcher,
		Sink:       sink,
		NumWorkers: numWorkers,
		BatchSize:  batchSize,
		MaxRetries: maxRetries,
	}
}

// Run phát partitions cho các worker và chặn tới khi queue cạn hoặc tổng
// đã persist (cộng dồn từ alreadyDone) chạm target. Khi chạm target các
// worker đang bay được hoàn thành partition hiện tại rồi dừng claim —
// graceful drain, không hard cancel, để không bỏ lại partition persist dở.
// Lỗi fatal dừng việc claim và trả về cho Controller.
func (pl *Pool) Run(ctx context.Context, partitions []*Partition, target, alreadyDone int) (*PoolResult, error) {
	queue := newPartitionQueue(partitions)

	var (
		total    int64 = int64(alreadyDone)
		result         = &PoolResult{}
		resultMu sync.Mutex
		fatalErr error
		fatal    atomic.Bool
		fatalMu  sync.Mutex
		wg       sync.WaitGroup
	)

	worker := func(id int) {
		defer wg.Done()
		for {
			if ctx.Err() != nil || fatal.Load() {
				return
			}
			if target > 0 && atomic.LoadInt64(&total) >= int64(target) {
				return
			}

			p := queue.pop()
			if p == nil {
				return
			}

			res, err := pl.Fetcher.Fetch(ctx, p)
			if err != nil {
				resultMu.Lock()
				result.Failed = append(result.Failed, p)
				resultMu.Unlock()

				if githubapi.Classify(err) == githubapi.KindFatal {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					fatalMu.Unlock()
					fatal.Store(true)
					pl.Logger.Error(ctx, "Worker %d: fatal error on window %s, stopping run: %v", id, p.Window(), err)
					return
				}

				pl.Logger.Error(ctx, "Worker %d: window %s failed after retries: %v", id, p.Window(), err)
				continue
			}

			if res.Overflowed {
				// Thay partition bằng hai nửa của nó, không bao giờ retry
				// nguyên trạng một cửa sổ đã overflow
				left, right := p.Bisect()
				if left != nil {
					metrics.PartitionsBisected.Inc()
					queue.push(left, right)
					pl.Logger.Info(ctx, "Worker %d: requeued %s as %s and %s", id, p.Window(), left.Window(), right.Window())
					continue
				}
				// Cửa sổ một ngày không chia được nữa: requeue với đánh dấu
				// bão hòa để lần fetch sau cắt tại cap thay vì mất kết quả
				p.Cursor = ""
				p.Fetched = 0
				p.Saturated = true
				p.Status = StatusPending
				queue.push(p)
				pl.Logger.Warn(ctx, "Worker %d: window %s overflows at one-day granularity, requeued for truncation", id, p.Window())
				continue
			}

			if err := pl.persist(ctx, res.Nodes); err != nil {
				p.Status = StatusFailed
				p.Err = err
				resultMu.Lock()
				result.Failed = append(result.Failed, p)
				resultMu.Unlock()
				pl.Logger.Error(ctx, "Worker %d: persist failed for window %s: %v", id, p.Window(), err)
				continue
			}

			newTotal := atomic.AddInt64(&total, int64(len(res.Nodes)))

			resultMu.Lock()
			result.Done = append(result.Done, p)
			result.Total += len(res.Nodes)
			if res.Truncated {
				result.Truncated = append(result.Truncated, p)
			}
			resultMu.Unlock()

			pl.Logger.Info(ctx, "Worker %d: window %s done, %d repositories (running total %d/%d)",
				id, p.Window(), len(res.Nodes), newTotal, target)
		}
	}

	for i := 0; i < pl.NumWorkers; i++ {
		wg.Add(1)
		go worker(i)
	}
	wg.Wait()

	return result, fatalErr
}

// persist ghi kết quả của một partition thành các batch bị chặn bởi
// BatchSize, mỗi batch là một transaction, retry nguyên batch khi hỏng.
func (pl *Pool) persist(ctx context.Context, nodes []githubapi.RepoNode) error {
	for start := 0; start < len(nodes); start += pl.BatchSize {
		end := start + pl.BatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]

		var err error
		for attempt := 0; attempt < pl.MaxRetries; attempt++ {
			if err = pl.Sink.Persist(ctx, batch); err == nil {
				break
			}
			pl.Logger.Warn(ctx, "Persist attempt %d/%d failed: %v", attempt+1, pl.MaxRetries, err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
