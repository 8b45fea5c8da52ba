package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/internal/model"
	"github.com/edisonbui/star-crawler/pkg/db"
	"github.com/edisonbui/star-crawler/pkg/kafka"
	"github.com/edisonbui/star-crawler/pkg/log"
)

func main() {
	// Load configuration
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := log.NewCslLogger()
	mysql, _ := db.NewMysql(config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repoModel, _ := model.NewRepo(config, logger, mysql)
	if err := mysql.Migrate(repoModel); err != nil {
		logger.Error(ctx, "Migrate failed: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	startRepoConsumer(ctx, config, logger, repoModel)

	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()
}

func startRepoConsumer(ctx context.Context, config *cfg.Config, logger log.Logger, repoModel *model.Repo) {
	consumer := kafka.NewConsumer(config, logger, config.Kafka.TopicRepo, "repo-consumer-group")

	batchSize := config.Crawler.BatchSize
	batchTimeout := 5 * time.Second

	// Channel to collect messages for batch processing
	messages := make(chan model.RepoMessage, batchSize*2)

	go processBatchedRepos(ctx, messages, batchSize, batchTimeout, logger, repoModel)

	consumer.RegisterHandler("repo", func(data []byte) error {
		var repoMsg model.RepoMessage
		if err := json.Unmarshal(data, &repoMsg); err != nil {
			return fmt.Errorf("failed to unmarshal repo message: %w", err)
		}

		select {
		case messages <- repoMsg:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error(ctx, "Repo consumer error: %v", err)
		}
	}()

	logger.Info(ctx, "Repository consumer started successfully")
}

// processBatchedRepos gom message thành batch theo size hoặc timeout rồi
// upsert một lần. Upsert idempotent theo remote id nên replay không tạo
// bản ghi trùng.
func processBatchedRepos(ctx context.Context, messages <-chan model.RepoMessage, batchSize int, batchTimeout time.Duration, logger log.Logger, repoModel *model.Repo) {
	batch := make([]model.RepoMessage, 0, batchSize)
	timer := time.NewTimer(batchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := repoModel.UpsertBatch(batch); err != nil {
			logger.Error(ctx, "Failed to upsert batch of %d repos: %v", len(batch), err)
		} else {
			logger.Info(ctx, "Upserted batch of %d repos", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case msg, ok := <-messages:
			if !ok {
				flush()
				return
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				flush()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(batchTimeout)
			}
		case <-timer.C:
			flush()
			timer.Reset(batchTimeout)
		}
	}
}
