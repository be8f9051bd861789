package models

// CacheStats is a point-in-time view over the non-expired entries of the store
type CacheStats struct {
	TotalKeys  int         `json:"total_keys"`
	TotalSize  string      `json:"total_size"`
	TotalBytes int64       `json:"total_bytes"`
	Entries    []EntryStat `json:"entries"`
}

// EntryStat describes one live entry for the settings screen
type EntryStat struct {
	Key              string `json:"key"`
	Size             string `json:"size"`
	Age              string `json:"age"`
	ExpiresIn        string `json:"expires_in"`
	SizeBytes        int64  `json:"size_bytes"`
	AgeSeconds       int64  `json:"age_seconds"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}
