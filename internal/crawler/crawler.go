package crawler

import (
	"context"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/internal/githubapi"
	"github.com/edisonbui/star-crawler/pkg/log"
)

// Crawler là entry point của một lần crawl. Crawl trả về true khi run
// kết thúc ở trạng thái completed.
type Crawler interface {
	Crawl(ctx context.Context) bool
	Stats() RunStats
}

// StarCrawler bọc Controller sau interface Crawler cho cmd/run
type StarCrawler struct {
	Logger     log.Logger
	Config     *cfg.Config
	Controller *Controller
}

func NewStarCrawler(logger log.Logger, config *cfg.Config, controller *Controller) (*StarCrawler, error) {
	return &StarCrawler{
		Logger:     logger,
		Config:     config,
		Controller: controller,
	}, nil
}

func (sc *StarCrawler) Crawl(ctx context.Context) bool {
	stats, err := sc.Controller.Run(ctx)
	if err != nil {
		sc.Logger.Error(ctx, "Crawl run failed: %v", err)
		return false
	}
	return stats.State == StateCompleted
}

func (sc *StarCrawler) Stats() RunStats {
	return sc.Controller.Stats()
}

// FactoryCrawler dựng crawler theo mode chạy
func FactoryCrawler(mode Mode, logger log.Logger, config *cfg.Config, client githubapi.SearchClient, sink Sink, rangeStart, rangeEnd string) (Crawler, error) {
	start, end, err := ParseRange(config, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}
	controller, err := NewController(logger, config, client, sink, mode, start, end)
	if err != nil {
		return nil, err
	}
	return NewStarCrawler(logger, config, controller)
}
