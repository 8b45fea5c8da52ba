package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_pages_fetched_total",
		Help: "Total number of search pages successfully fetched",
	})
	ReposPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_repos_persisted_total",
		Help: "Total number of repositories upserted",
	})
	RetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_retries_total",
		Help: "Total number of transient-failure retries",
	})
	RateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_rate_limit_waits_total",
		Help: "Total number of waits for the rate-limit budget to reset",
	})
	PartitionsBisected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crawler_partitions_bisected_total",
		Help: "Total number of date windows split because they exceeded the query result cap",
	})
)

func init() {
	prometheus.MustRegister(PagesFetched, ReposPersisted, RetriesTotal, RateLimitWaits, PartitionsBisected)
}
