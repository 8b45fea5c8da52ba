package crawler

import (
	"context"

	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/internal/model"
	"github.com/edisonbui/star-crawler/pkg/kafka"
	"github.com/edisonbui/star-crawler/pkg/log"
	"github.com/edisonbui/star-crawler/pkg/metrics"
)

// Sink là ranh giới persistence của orchestrator. Một batch đến từ đúng
// một partition; Persist phải idempotent theo remote id.
type Sink interface {
	Persist(ctx context.Context, nodes []githubapi.RepoNode) error
}

// DbSink ghi thẳng vào MySQL qua batch upsert của model
type DbSink struct {
	RepoMd *model.Repo
}

func NewDbSink(repoMd *model.Repo) *DbSink {
	return &DbSink{RepoMd: repoMd}
}

func (s *DbSink) Persist(ctx context.Context, nodes []githubapi.RepoNode) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := s.RepoMd.UpsertBatch(model.MessagesFromNodes(nodes)); err != nil {
		return err
	}
	metrics.ReposPersisted.Add(float64(len(nodes)))
	return nil
}

// Publisher là phần của kafka.Producer mà sink cần
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

var _ Publisher = (*kafka.Producer)(nil)

// KafkaSink đẩy batch vào topic repo thay vì ghi trực tiếp database;
// consumer riêng sẽ gom batch và upsert
type KafkaSink struct {
	Logger   log.Logger
	Producer Publisher
}

func NewKafkaSink(logger log.Logger, producer Publisher) *KafkaSink {
	return &KafkaSink{Logger: logger, Producer: producer}
}

func (s *KafkaSink) Persist(ctx context.Context, nodes []githubapi.RepoNode) error {
	for _, msg := range model.MessagesFromNodes(nodes) {
		if err := s.Producer.Publish(ctx, "repo", msg); err != nil {
			return err
		}
	}
	metrics.ReposPersisted.Add(float64(len(nodes)))
	return nil
}
