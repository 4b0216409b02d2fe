package utils

import (
	"path/filepath"
	"strings"
	"time"
)

// NowUTC is the single clock read used by handlers, keeping stored
// timestamps uniformly UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FileExt returns the lowercased extension of an uploaded filename
// (including the dot), or empty for none.
func FileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
