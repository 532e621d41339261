package utils

import (
	"strings"
	"time"
)

// MSToTime convert unix millisecond to time, zero value stays nil
func MSToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func String(s string) *string {
	return &s
}

func Int32(v int32) *int32 {
	return &v
}

func Int64(v int64) *int64 {
	return &v
}

func Bool(v bool) *bool {
	return &v
}

// SafeName lowercase, alphanumeric and '-' only, for k8s and fc resource names
func SafeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(name) > maxLen {
		name = strings.TrimRight(name[:maxLen], "-")
	}
	return name
}

