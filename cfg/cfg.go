package cfg

import (
	"fmt"
	"time"
)

type (
	App struct {
		Name    string
		Version string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	GithubApi struct {
		AccessToken       string
		GraphqlUrl        string
		RequestsPerSecond int
		RateLimitResetMin int
	}

	Crawler struct {
		Language           string
		MinStars           int
		Keywords           []string
		SortBy             string // "stars", "updated", "created", "forks" hoặc rỗng
		BatchSize          int
		MaxRetries         int
		TargetTotal        int
		NumWorkers         int
		QueryResultCap     int
		PartitionsPerCycle int
		StartYear          int
		StartMonth         int
		Sink               string // "db" or "kafka"
	}

	Kafka struct {
		Brokers   []string
		TopicRepo string
	}

	Status struct {
		Enabled bool
		Addr    string
	}
)

type Config struct {
	App       App
	Mysql     Mysql
	GithubApi GithubApi
	Crawler   Crawler
	Kafka     Kafka
	Status    Status
}

// Validate kiểm tra cấu hình lúc khởi động. Giá trị sai là lỗi fatal,
// không bao giờ retry.
func (c *Config) Validate() error {
	cr := c.Crawler
	if cr.BatchSize < 1 || cr.BatchSize > 100 {
		return fmt.Errorf("crawler.batchsize must be in [1,100], got %d", cr.BatchSize)
	}
	if cr.MaxRetries < 1 {
		return fmt.Errorf("crawler.maxretries must be >= 1, got %d", cr.MaxRetries)
	}
	if cr.TargetTotal < 1 {
		return fmt.Errorf("crawler.targettotal must be >= 1, got %d", cr.TargetTotal)
	}
	if cr.MinStars < 0 {
		return fmt.Errorf("crawler.minstars must be >= 0, got %d", cr.MinStars)
	}
	if cr.NumWorkers < 1 {
		return fmt.Errorf("crawler.numworkers must be >= 1, got %d", cr.NumWorkers)
	}
	if cr.QueryResultCap < 1 {
		return fmt.Errorf("crawler.queryresultcap must be >= 1, got %d", cr.QueryResultCap)
	}
	if cr.PartitionsPerCycle < 1 || cr.PartitionsPerCycle > 1000 {
		return fmt.Errorf("crawler.partitionspercycle must be in (0,1000], got %d", cr.PartitionsPerCycle)
	}
	if cr.StartYear < 2008 || cr.StartYear > time.Now().Year() {
		return fmt.Errorf("crawler.startyear must be in [2008,%d], got %d", time.Now().Year(), cr.StartYear)
	}
	if cr.StartMonth < 1 || cr.StartMonth > 12 {
		return fmt.Errorf("crawler.startmonth must be in [1,12], got %d", cr.StartMonth)
	}
	switch cr.SortBy {
	case "", "none", "stars", "updated", "created", "forks":
	default:
		return fmt.Errorf("crawler.sortby must be one of stars, updated, created, forks or empty, got %q", cr.SortBy)
	}
	if cr.Sink != "db" && cr.Sink != "kafka" {
		return fmt.Errorf("crawler.sink must be %q or %q, got %q", "db", "kafka", cr.Sink)
	}
	if cr.Sink == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty when crawler.sink is kafka")
	}
	if c.GithubApi.GraphqlUrl == "" {
		return fmt.Errorf("githubapi.graphqlurl must not be empty")
	}
	if c.GithubApi.RequestsPerSecond < 1 {
		return fmt.Errorf("githubapi.requestspersecond must be >= 1, got %d", c.GithubApi.RequestsPerSecond)
	}
	if c.Mysql.Host == "" || c.Mysql.Port == "" || c.Mysql.Database == "" {
		return fmt.Errorf("mysql host, port and database must not be empty")
	}
	return nil
}
