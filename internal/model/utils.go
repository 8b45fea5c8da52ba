package model

import "strings"

// TruncateString cắt chuỗi xuống độ dài tối đa cho phép
// nếu chuỗi dài hơn giới hạn
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength]
}

// SplitNameWithOwner tách "owner/repo" thành owner và tên repo
func SplitNameWithOwner(nameWithOwner string) (string, string) {
	parts := strings.SplitN(nameWithOwner, "/", 2)
	if len(parts) == 2 && parts[0] != "" {
		return parts[0], parts[1]
	}
	return "unknown", nameWithOwner
}
