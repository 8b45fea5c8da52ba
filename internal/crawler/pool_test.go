package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/internal/limiter"
	"github.com/edisonbui/star-crawler/pkg/log"
)

func newTestPool(client githubapi.SearchClient, sink Sink, workers, cap int) *Pool {
	logger, _ := log.NewCslLogger()
	budget := limiter.NewBudget(1000, time.Minute)
	fetcher := NewFetcher(logger, client, budget, 3, 2, cap)
	fetcher.Backoff = time.Millisecond
	return NewPool(logger, fetcher, sink, workers, 10, 2)
}

func TestPoolDrainsAllPartitions(t *testing.T) {
	client := newFakeClient(
		repoAt("R_1", "2020-01-10", 10),
		repoAt("R_2", "2020-01-20", 10),
		repoAt("R_3", "2020-02-10", 10),
		repoAt("R_4", "2020-02-20", 10),
		repoAt("R_5", "2020-03-10", 10),
	)
	sink := newRecordingSink()
	pool := newTestPool(client, sink, 3, 100)

	partitions := []*Partition{
		windowPartition("2020-01-01", "2020-01-31"),
		windowPartition("2020-02-01", "2020-02-29"),
		windowPartition("2020-03-01", "2020-03-31"),
	}

	res, err := pool.Run(context.Background(), partitions, 100, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Len(t, res.Done, 3)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 5, sink.total())
	assert.Empty(t, sink.duplicates())
}

func TestPoolStopsGracefullyAtTarget(t *testing.T) {
	client := newFakeClient(
		repoAt("R_1", "2020-01-10", 10),
		repoAt("R_2", "2020-01-20", 10),
		repoAt("R_3", "2020-02-10", 10),
		repoAt("R_4", "2020-02-20", 10),
	)
	sink := newRecordingSink()
	// Một worker để thứ tự claim là tất định
	pool := newTestPool(client, sink, 1, 100)

	partitions := []*Partition{
		windowPartition("2020-01-01", "2020-01-31"),
		windowPartition("2020-02-01", "2020-02-29"),
	}

	res, err := pool.Run(context.Background(), partitions, 2, 0)
	require.NoError(t, err)

	// Partition đầu đưa tổng lên 2, worker không claim partition thứ hai
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Done, 1)
	assert.Equal(t, 2, sink.total())
}

func TestPoolCountsAlreadyDoneTowardTarget(t *testing.T) {
	client := newFakeClient(repoAt("R_1", "2020-01-10", 10))
	sink := newRecordingSink()
	pool := newTestPool(client, sink, 1, 100)

	partitions := []*Partition{windowPartition("2020-01-01", "2020-01-31")}

	// Target đã đạt từ các chu kỳ trước, không partition nào được chạy
	res, err := pool.Run(context.Background(), partitions, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Done)
	assert.Equal(t, 0, sink.total())
}

func TestPoolBisectsOverflowedPartitions(t *testing.T) {
	var repos []githubapi.RepoNode
	for i := 0; i < 8; i++ {
		d := "2020-05-01"
		if i >= 4 {
			d = "2020-05-02"
		}
		repos = append(repos, repoAt(string(rune('a'+i)), d, 10))
	}
	client := newFakeClient(repos...)
	sink := newRecordingSink()
	pool := newTestPool(client, sink, 2, 5)

	partitions := []*Partition{windowPartition("2020-05-01", "2020-05-02")}

	res, err := pool.Run(context.Background(), partitions, 100, 0)
	require.NoError(t, err)

	// Cửa sổ gốc overflow, hai nửa một ngày phủ lại toàn bộ kết quả
	assert.Equal(t, 8, res.Total)
	assert.Len(t, res.Done, 2)
	assert.Equal(t, 8, sink.total())
	assert.Empty(t, sink.duplicates(), "overflowed partial results must never be persisted")
}

func TestPoolTruncatesUnbisectableOverflow(t *testing.T) {
	// 7 repo dồn vào một ngày: nửa trái sau bisect vẫn vượt cap nhưng
	// không thể chia nhỏ hơn, phải được cắt tại cap chứ không bị bỏ rơi
	var repos []githubapi.RepoNode
	for i := 0; i < 7; i++ {
		repos = append(repos, repoAt(string(rune('a'+i)), "2020-05-01", 10))
	}
	repos = append(repos, repoAt("h", "2020-05-02", 10))

	client := newFakeClient(repos...)
	sink := newRecordingSink()
	pool := newTestPool(client, sink, 1, 5)

	partitions := []*Partition{windowPartition("2020-05-01", "2020-05-02")}

	res, err := pool.Run(context.Background(), partitions, 100, 0)
	require.NoError(t, err)

	// Ngày 05-01 cắt tại cap, ngày 05-02 trọn vẹn: không cửa sổ nào biến mất
	assert.Len(t, res.Done, 2)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Truncated, 1)
	assert.Equal(t, "2020-05-01..2020-05-01", res.Truncated[0].Window())

	assert.GreaterOrEqual(t, res.Total, 6, "the truncated prefix must still be persisted")
	assert.Equal(t, res.Total, sink.total())
	assert.Empty(t, sink.duplicates())
}

func TestPoolStopsOnFatalError(t *testing.T) {
	client := newFakeClient(repoAt("R_1", "2020-01-10", 10))
	client.searchErr = &githubapi.APIError{Kind: githubapi.KindFatal, Status: 401, Message: "bad credentials"}
	sink := newRecordingSink()
	pool := newTestPool(client, sink, 2, 100)

	partitions := []*Partition{
		windowPartition("2020-01-01", "2020-01-31"),
		windowPartition("2020-02-01", "2020-02-29"),
	}

	res, err := pool.Run(context.Background(), partitions, 100, 0)
	require.Error(t, err)
	assert.Equal(t, githubapi.KindFatal, githubapi.Classify(err))
	assert.NotEmpty(t, res.Failed)
	assert.Equal(t, 0, sink.total())
}

func TestPoolContinuesPastFailedPartitions(t *testing.T) {
	inner := newFakeClient(
		repoAt("R_1", "2020-01-10", 10),
		repoAt("R_2", "2020-02-10", 10),
	)
	sink := newRecordingSink()
	sink.err = errors.New("mysql is down")
	pool := newTestPool(inner, sink, 1, 100)

	partitions := []*Partition{
		windowPartition("2020-01-01", "2020-01-31"),
		windowPartition("2020-02-01", "2020-02-29"),
	}

	res, err := pool.Run(context.Background(), partitions, 100, 0)
	require.NoError(t, err, "persistence failures are not fatal to the run")

	assert.Equal(t, 0, res.Total)
	assert.Len(t, res.Failed, 2)
	for _, p := range res.Failed {
		assert.Equal(t, StatusFailed, p.Status)
		assert.Error(t, p.Err)
	}
}

func TestPoolEmptyInput(t *testing.T) {
	pool := newTestPool(newFakeClient(), newRecordingSink(), 2, 100)
	res, err := pool.Run(context.Background(), nil, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Done)
}
