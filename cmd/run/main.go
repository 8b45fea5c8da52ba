package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/internal/crawler"
	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/internal/model"
	"github.com/edisonbui/star-crawler/internal/status"
	"github.com/edisonbui/star-crawler/pkg/db"
	"github.com/edisonbui/star-crawler/pkg/kafka"
	"github.com/edisonbui/star-crawler/pkg/log"
)

type Handler struct {
	Crawler crawler.Crawler
	Logger  log.Logger
}

func NewHandler(cr crawler.Crawler, logger log.Logger) *Handler {
	return &Handler{
		Crawler: cr,
		Logger:  logger,
	}
}

func main() {
	mode := flag.String("mode", "single", "Run mode (single, pipeline)")
	language := flag.String("language", "", "Override crawler.language")
	minStars := flag.Int("min-stars", -1, "Override crawler.minstars")
	sortBy := flag.String("sort", "", "Override crawler.sortby (stars, updated, created, forks)")
	batchSize := flag.Int("batch-size", 0, "Override crawler.batchsize")
	total := flag.Int("total", 0, "Override crawler.targettotal")
	workers := flag.Int("workers", 0, "Override crawler.numworkers")
	startYear := flag.Int("start-year", 0, "Override crawler.startyear")
	startMonth := flag.Int("start-month", 0, "Override crawler.startmonth")
	createdAfter := flag.String("created-after", "", "Start of the created-date range (YYYY-MM-DD)")
	createdBefore := flag.String("created-before", "", "End of the created-date range (YYYY-MM-DD)")
	flag.Parse()

	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := log.NewCslLogger()

	// Flag overrides, validated lại sau khi apply
	if *language != "" {
		config.Crawler.Language = *language
	}
	if *minStars >= 0 {
		config.Crawler.MinStars = *minStars
	}
	if *sortBy != "" {
		config.Crawler.SortBy = *sortBy
	}
	if *batchSize > 0 {
		config.Crawler.BatchSize = *batchSize
	}
	if *total > 0 {
		config.Crawler.TargetTotal = *total
	}
	if *workers > 0 {
		config.Crawler.NumWorkers = *workers
	}
	if *startYear > 0 {
		config.Crawler.StartYear = *startYear
	}
	if *startMonth > 0 {
		config.Crawler.StartMonth = *startMonth
	}
	if err := config.Validate(); err != nil {
		logger.Error(context.Background(), "Invalid config: %v", err)
		os.Exit(1)
	}

	// Ctx hủy khi nhận SIGINT/SIGTERM, worker đang bay dừng giữa chừng
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mysql, _ := db.NewMysql(config)
	repoMd, _ := model.NewRepo(config, logger, mysql)

	var sink crawler.Sink
	var producer *kafka.Producer
	switch config.Crawler.Sink {
	case "kafka":
		producer = kafka.NewProducer(config, logger, config.Kafka.TopicRepo)
		defer producer.Close()
		sink = crawler.NewKafkaSink(logger, producer)
	default:
		// Migrate chỉ khi ghi thẳng database; đường kafka để consumer lo
		if err := mysql.Migrate(repoMd); err != nil {
			logger.Error(ctx, "Migrate failed: %v", err)
			os.Exit(1)
		}
		sink = crawler.NewDbSink(repoMd)
	}

	caller := githubapi.NewCaller(logger, config)
	cr, err := crawler.FactoryCrawler(crawler.Mode(*mode), logger, config, caller, sink, *createdAfter, *createdBefore)
	if err != nil {
		logger.Error(ctx, "Failed to build crawler: %v", err)
		os.Exit(1)
	}

	var statusSv *status.Server
	if config.Status.Enabled {
		statusSv, _ = status.NewServer(logger, config, cr)
		go func() {
			if err := statusSv.Start(); err != nil {
				logger.Error(ctx, "Status server error: %v", err)
			}
		}()
	}

	logger.Info(ctx, "Starting Github star crawler in %s mode", *mode)
	handler := NewHandler(cr, logger)
	ok := handler.Crawler.Crawl(ctx)

	if statusSv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = statusSv.Stop(shutdownCtx)
		shutdownCancel()
	}

	if ok {
		logger.Info(ctx, "Successfully!")
		return
	}
	logger.Error(ctx, "Failed!")
	os.Exit(1)
}
