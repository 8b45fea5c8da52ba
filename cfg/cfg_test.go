package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	loader, err := NewMockLoader()
	require.NoError(t, err)
	config, err := loader.Load()
	require.NoError(t, err)
	return config
}

func TestValidateMockConfig(t *testing.T) {
	config := validConfig(t)
	assert.NoError(t, config.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"batch size zero", func(c *Config) { c.Crawler.BatchSize = 0 }},
		{"batch size over 100", func(c *Config) { c.Crawler.BatchSize = 101 }},
		{"max retries zero", func(c *Config) { c.Crawler.MaxRetries = 0 }},
		{"target total zero", func(c *Config) { c.Crawler.TargetTotal = 0 }},
		{"negative min stars", func(c *Config) { c.Crawler.MinStars = -1 }},
		{"num workers zero", func(c *Config) { c.Crawler.NumWorkers = 0 }},
		{"query result cap zero", func(c *Config) { c.Crawler.QueryResultCap = 0 }},
		{"partitions per cycle zero", func(c *Config) { c.Crawler.PartitionsPerCycle = 0 }},
		{"partitions per cycle over 1000", func(c *Config) { c.Crawler.PartitionsPerCycle = 1001 }},
		{"start year before github", func(c *Config) { c.Crawler.StartYear = 2007 }},
		{"start year in the future", func(c *Config) { c.Crawler.StartYear = 3000 }},
		{"start month zero", func(c *Config) { c.Crawler.StartMonth = 0 }},
		{"start month thirteen", func(c *Config) { c.Crawler.StartMonth = 13 }},
		{"unknown sink", func(c *Config) { c.Crawler.Sink = "s3" }},
		{"unknown sort qualifier", func(c *Config) { c.Crawler.SortBy = "help-wanted-issues" }},
		{"kafka sink without brokers", func(c *Config) {
			c.Crawler.Sink = "kafka"
			c.Kafka.Brokers = nil
		}},
		{"empty graphql url", func(c *Config) { c.GithubApi.GraphqlUrl = "" }},
		{"requests per second zero", func(c *Config) { c.GithubApi.RequestsPerSecond = 0 }},
		{"empty mysql host", func(c *Config) { c.Mysql.Host = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := validConfig(t)
			tc.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestValidateAllowsKnownSortQualifiers(t *testing.T) {
	for _, sortBy := range []string{"", "none", "stars", "updated", "created", "forks"} {
		config := validConfig(t)
		config.Crawler.SortBy = sortBy
		assert.NoError(t, config.Validate(), "sortby %q must be accepted", sortBy)
	}
}

func TestValidateAllowsKafkaSinkWithBrokers(t *testing.T) {
	config := validConfig(t)
	config.Crawler.Sink = "kafka"
	assert.NoError(t, config.Validate())
}
