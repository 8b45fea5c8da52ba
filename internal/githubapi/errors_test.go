package githubapi

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindFatal, Classify(&APIError{Kind: KindFatal}))
	assert.Equal(t, KindRateLimited, Classify(&APIError{Kind: KindRateLimited}))
	assert.Equal(t, KindTransient, Classify(&APIError{Kind: KindTransient}))

	// Lỗi không phải APIError (mạng, timeout) mặc định là transient
	assert.Equal(t, KindTransient, Classify(errors.New("connection reset")))

	// Wrapped vẫn phân loại được
	wrapped := fmt.Errorf("probe: %w", &APIError{Kind: KindFatal, Status: 401})
	assert.Equal(t, KindFatal, Classify(wrapped))
}

func TestAdvisedWait(t *testing.T) {
	t.Run("retry-after wins", func(t *testing.T) {
		err := &APIError{Kind: KindRateLimited, RetryAfter: 30 * time.Second, ResetAt: time.Now().Add(time.Hour)}
		wait, ok := AdvisedWait(err)
		assert.True(t, ok)
		assert.Equal(t, 30*time.Second, wait)
	})

	t.Run("reset-at fallback", func(t *testing.T) {
		err := &APIError{Kind: KindRateLimited, ResetAt: time.Now().Add(time.Minute)}
		wait, ok := AdvisedWait(err)
		assert.True(t, ok)
		assert.Greater(t, wait, 50*time.Second)
	})

	t.Run("past reset-at gives nothing", func(t *testing.T) {
		err := &APIError{Kind: KindRateLimited, ResetAt: time.Now().Add(-time.Minute)}
		_, ok := AdvisedWait(err)
		assert.False(t, ok)
	})

	t.Run("non rate-limit errors give nothing", func(t *testing.T) {
		_, ok := AdvisedWait(&APIError{Kind: KindTransient, RetryAfter: time.Second})
		assert.False(t, ok)
		_, ok = AdvisedWait(errors.New("boom"))
		assert.False(t, ok)
	})
}
