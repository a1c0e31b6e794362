package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// OutputFilename builds a timestamped export path like
// "coffee_shops_manhattan_ny_20260830_153000.csv" under dir.
func OutputFilename(dir, query, location, ext string) string {
	timestamp := time.Now().Format("20060102_150405")
	name := sanitize(query, 20) + "_" + sanitize(location, 20) + "_" + timestamp + "." + ext
	return filepath.Join(dir, name)
}

func sanitize(s string, max int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > max {
		s = s[:max]
	}
	return s
}
