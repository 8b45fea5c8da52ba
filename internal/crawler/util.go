package crawler

import (
	"fmt"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
)

const dateLayout = "2006-01-02"

// ParseRange diễn giải cặp mốc ngày từ flag CLI. Chuỗi rỗng rơi về mặc
// định từ config: start là đầu tháng StartYear/StartMonth, end là hôm nay.
func ParseRange(config *cfg.Config, startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -created-after %q: %w", startStr, err)
		}
	} else {
		start = time.Date(config.Crawler.StartYear, time.Month(config.Crawler.StartMonth), 1, 0, 0, 0, 0, time.UTC)
	}

	if endStr != "" {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -created-before %q: %w", endStr, err)
		}
	} else {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("empty date range %s..%s", start.Format(dateLayout), end.Format(dateLayout))
	}
	return start, end, nil
}
