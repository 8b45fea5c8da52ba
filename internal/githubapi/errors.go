package githubapi

import (
	"errors"
	"fmt"
	"time"
)

// Kind phân loại lỗi API: retry hay abort nằm duy nhất ở đây
type Kind int

const (
	// KindTransient: timeout, 5xx — retry với backoff
	KindTransient Kind = iota
	// KindRateLimited: hết ngân sách — chờ tới reset, không tính vào retry
	// budget khi server trả về thời gian chờ rõ ràng
	KindRateLimited
	// KindFatal: sai credential, query hỏng — abort ngay
	KindFatal
)

type APIError struct {
	Kind       Kind
	Status     int
	Message    string
	ResetAt    time.Time     // thời điểm ngân sách reset, nếu server cho biết
	RetryAfter time.Duration // thời gian chờ server yêu cầu rõ ràng, 0 nếu không có
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("github api rate limited (status %d): %s", e.Status, e.Message)
	case KindFatal:
		return fmt.Sprintf("github api fatal error (status %d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("github api transient error (status %d): %s", e.Status, e.Message)
	}
}

// Classify trả về phân loại của một lỗi bất kỳ từ caller.
// Lỗi không phải APIError (lỗi mạng, timeout) được coi là transient.
func Classify(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// AdvisedWait trả về thời gian chờ mà server gợi ý cho một lỗi rate-limit,
// và false nếu server không nói gì cụ thể.
func AdvisedWait(err error) (time.Duration, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindRateLimited {
		return 0, false
	}
	if apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	if !apiErr.ResetAt.IsZero() {
		if wait := time.Until(apiErr.ResetAt); wait > 0 {
			return wait, true
		}
	}
	return 0, false
}
