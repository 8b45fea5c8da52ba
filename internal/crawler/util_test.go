package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edisonbui/star-crawler/cfg"
)

func TestParseRangeExplicitBounds(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()

	start, end, err := ParseRange(config, "2020-03-01", "2021-03-01")
	require.NoError(t, err)
	assert.True(t, start.Equal(day("2020-03-01")))
	assert.True(t, end.Equal(day("2021-03-01")))
}

func TestParseRangeDefaultsFromConfig(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.Crawler.StartYear = 2015
	config.Crawler.StartMonth = 6

	start, end, err := ParseRange(config, "", "")
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2015, time.June, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, end.Before(start))
}

func TestParseRangeRejectsBadInput(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()

	_, _, err := ParseRange(config, "01/03/2020", "")
	assert.Error(t, err)

	_, _, err = ParseRange(config, "", "not-a-date")
	assert.Error(t, err)

	_, _, err = ParseRange(config, "2021-01-01", "2020-01-01")
	assert.Error(t, err)
}
