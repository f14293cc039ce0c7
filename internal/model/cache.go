package model

import "time"

// FileFingerprint records the state of a source file as of its last
// successful index pass. A file is current iff both Size and ModTime
// match the on-disk values.
type FileFingerprint struct {
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modified"`
	IndexedAt   time.Time `json:"indexed_at"`
	RecordCount int       `json:"entry_count"`
}

// CacheMetadata is the JSON sidecar persisted next to the index.
type CacheMetadata struct {
	IndexedFiles  map[string]FileFingerprint `json:"indexed_files"`
	LastFullScan  time.Time                  `json:"last_full_scan"`
	IndexVersion  int                        `json:"index_version"`
	TotalEntries  int                        `json:"total_entries"`
}

// NewCacheMetadata returns an empty metadata value for a fresh index.
func NewCacheMetadata(schemaVersion int) *CacheMetadata {
	return &CacheMetadata{
		IndexedFiles: make(map[string]FileFingerprint),
		IndexVersion: schemaVersion,
	}
}
