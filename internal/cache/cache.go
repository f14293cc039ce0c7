// Package cache implements component E: the JSON sidecar cache that
// tracks which source files are current, drives incremental updates
// through the index writer, and reports health.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/parser"
)

const metadataFileName = "cache-metadata.json"

// HealthStatus classifies the overall freshness of the index relative
// to the on-disk corpus.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	NeedsUpdate
	NeedsRebuild
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "Healthy"
	case NeedsUpdate:
		return "NeedsUpdate"
	case NeedsRebuild:
		return "NeedsRebuild"
	default:
		return "Unknown"
	}
}

// Health is the result of a full check_index_health pass.
type Health struct {
	TotalIndexedFiles int
	TotalEntries      int
	LastIndexed       time.Time
	StaleFiles        []string
	MissingFiles      []string
	NewFiles          []string
	Status            HealthStatus
}

// ProjectStats aggregates indexed-file counts by project directory.
type ProjectStats struct {
	Name        string
	Files       int
	Entries     int
	LastUpdated time.Time
}

// Stats is the aggregate summary returned by GetStats.
type Stats struct {
	TotalFiles   int
	TotalEntries int
	LastUpdated  time.Time
	Projects     []ProjectStats
}

// Manager owns the sidecar metadata file colocated with an index
// directory and drives incremental updates through an index.Writer.
type Manager struct {
	indexDir      string
	metadataFile  string
	meta          *model.CacheMetadata
	parseOptions  parser.Options
	heapBatchSize int
}

// NewManager loads (or initializes) the sidecar metadata for the index
// at indexDir.
func NewManager(indexDir string, parseOptions parser.Options) (*Manager, error) {
	metadataFile := filepath.Join(indexDir, metadataFileName)
	meta, err := loadMetadata(metadataFile)
	if err != nil {
		return nil, err
	}
	return &Manager{indexDir: indexDir, metadataFile: metadataFile, meta: meta, parseOptions: parseOptions}, nil
}

// bytesPerRecordEstimate approximates a MessageRecord's resident size
// once tokenized and batched by bleve, for translating a configured
// heap-budget (megabytes) into a record-count flush threshold.
const bytesPerRecordEstimate = 2048

// SetWriterHeapMB bounds UpdateIncremental's in-memory batch: once a
// sweep has buffered roughly heapMB worth of records it commits early
// and starts a fresh batch, rather than holding the entire corpus sweep
// in one uncommitted bleve batch. 0 (the zero value) leaves sweeps
// unbounded, which is fine for normal incremental updates but can spike
// memory on a full index rebuild.
func (m *Manager) SetWriterHeapMB(heapMB uint32) {
	if heapMB == 0 {
		m.heapBatchSize = 0
		return
	}
	m.heapBatchSize = int(heapMB) * 1024 * 1024 / bytesPerRecordEstimate
	if m.heapBatchSize < 1 {
		m.heapBatchSize = 1
	}
}

func loadMetadata(path string) (*model.CacheMetadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.NewCacheMetadata(index.SchemaVersion), nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.CacheMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.NewCacheMetadata(index.SchemaVersion), nil
	}
	if meta.IndexedFiles == nil {
		meta.IndexedFiles = make(map[string]model.FileFingerprint)
	}
	return &meta, nil
}

// save writes the sidecar atomically via temp-file + rename.
func (m *Manager) save() error {
	if err := os.MkdirAll(m.indexDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.meta, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(m.indexDir, ".cache-metadata-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, m.metadataFile)
}

// NeedsIndexing reports true iff path's fingerprint is absent or its
// (size, mtime) differ from what's on disk.
func (m *Manager) NeedsIndexing(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	cached, ok := m.meta.IndexedFiles[path]
	if !ok {
		return true, nil
	}
	return cached.Size != info.Size() || !cached.ModTime.Equal(info.ModTime().UTC().Truncate(time.Second)), nil
}

// UpdateIncremental sweeps files: unchanged files are skipped, deleted
// files are evicted from the sidecar, and changed/new files are
// reparsed and written through writer as delete_session+append. A
// single commit covers the whole batch unless SetWriterHeapMB has set a
// record threshold, in which case the batch is also committed each time
// the buffered records cross it; the sidecar is written once at the
// end, per spec.md §4.E/§5.
func (m *Manager) UpdateIncremental(writer *index.Writer, files []string) error {
	batch := writer.NewBatch()
	wroteAny := false
	totalEntries := 0
	batchEntries := 0

	for _, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			delete(m.meta.IndexedFiles, path)
			continue
		}

		needsIndexing, err := m.NeedsIndexing(path)
		if err != nil {
			applog.L().Warnw("failed to stat file during sweep", "file", path, "err", err)
			continue
		}
		if !needsIndexing {
			continue
		}

		records, err := parser.ParseFile(path, m.parseOptions)
		if err != nil {
			applog.L().Warnw("failed to parse file during sweep", "file", path, "err", err)
			continue
		}

		if len(records) > 0 {
			if err := writer.DeleteSession(batch, records[0].SessionID); err != nil {
				return err
			}
			if err := writer.Append(batch, records); err != nil {
				return err
			}
			wroteAny = true
			totalEntries += len(records)
			batchEntries += len(records)
		}

		info, err := os.Stat(path)
		if err != nil {
			applog.L().Warnw("file vanished mid-sweep", "file", path, "err", err)
			continue
		}
		if info.Size() > 0 && len(records) == 0 {
			// Non-empty file, zero records: every line was malformed.
			// Leave it unfingerprinted so it's retried next sweep, in
			// case a later fix to the file or the parser yields records.
			continue
		}
		m.meta.IndexedFiles[path] = model.FileFingerprint{
			Size:        info.Size(),
			ModTime:     info.ModTime().UTC().Truncate(time.Second),
			IndexedAt:   time.Now().UTC(),
			RecordCount: len(records),
		}

		if m.heapBatchSize > 0 && batchEntries >= m.heapBatchSize {
			if err := writer.Commit(batch); err != nil {
				return err
			}
			batch = writer.NewBatch()
			batchEntries = 0
		}
	}

	if wroteAny {
		if err := writer.Commit(batch); err != nil {
			return err
		}
	}

	m.meta.TotalEntries += totalEntries
	m.meta.LastFullScan = time.Now().UTC()
	return m.save()
}

// Clear removes the index directory, resets the sidecar, and recreates
// an empty directory.
func (m *Manager) Clear() error {
	if err := os.RemoveAll(m.indexDir); err != nil {
		return err
	}
	if err := os.MkdirAll(m.indexDir, 0o755); err != nil {
		return err
	}
	m.meta = model.NewCacheMetadata(index.SchemaVersion)
	return m.save()
}

// QuickHealthCheck returns (staleCount, newCount) by comparing
// fingerprints against on-disk stat data, without reading file
// contents.
func (m *Manager) QuickHealthCheck(allFiles []string) (stale, newFiles int) {
	for path, meta := range m.meta.IndexedFiles {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Size() != meta.Size || !info.ModTime().UTC().Truncate(time.Second).Equal(meta.ModTime) {
			stale++
		}
	}
	for _, path := range allFiles {
		if _, ok := m.meta.IndexedFiles[path]; !ok {
			newFiles++
		}
	}
	return stale, newFiles
}

// CheckIndexHealth performs a full comparison of cached fingerprints
// against on-disk files and classifies the result.
func (m *Manager) CheckIndexHealth(allFiles []string) Health {
	var staleFiles, missingFiles, newFiles []string

	for path, meta := range m.meta.IndexedFiles {
		info, err := os.Stat(path)
		if err != nil {
			missingFiles = append(missingFiles, path)
			continue
		}
		if info.Size() != meta.Size || !info.ModTime().UTC().Truncate(time.Second).Equal(meta.ModTime) {
			staleFiles = append(staleFiles, path)
		}
	}
	for _, path := range allFiles {
		if _, ok := m.meta.IndexedFiles[path]; !ok {
			newFiles = append(newFiles, path)
		}
	}

	status := Healthy
	if len(m.meta.IndexedFiles) > 0 && len(missingFiles) > len(m.meta.IndexedFiles)/2 {
		status = NeedsRebuild
	} else if len(staleFiles) > 0 || len(newFiles) > 0 || len(missingFiles) > 0 {
		status = NeedsUpdate
	}

	return Health{
		TotalIndexedFiles: len(m.meta.IndexedFiles),
		TotalEntries:      m.meta.TotalEntries,
		LastIndexed:       m.meta.LastFullScan,
		StaleFiles:        staleFiles,
		MissingFiles:      missingFiles,
		NewFiles:          newFiles,
		Status:            status,
	}
}

// GetStats aggregates per-project counts by grouping fingerprints by
// parent directory.
func (m *Manager) GetStats() Stats {
	projects := map[string]*ProjectStats{}
	for path, meta := range m.meta.IndexedFiles {
		name := filepath.Base(filepath.Dir(path))
		p, ok := projects[name]
		if !ok {
			p = &ProjectStats{Name: name, LastUpdated: meta.IndexedAt}
			projects[name] = p
		}
		p.Files++
		p.Entries += meta.RecordCount
		if meta.IndexedAt.After(p.LastUpdated) {
			p.LastUpdated = meta.IndexedAt
		}
	}

	list := make([]ProjectStats, 0, len(projects))
	for _, p := range projects {
		list = append(list, *p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].LastUpdated.After(list[j].LastUpdated) })

	return Stats{
		TotalFiles:   len(m.meta.IndexedFiles),
		TotalEntries: m.meta.TotalEntries,
		LastUpdated:  m.meta.LastFullScan,
		Projects:     list,
	}
}
