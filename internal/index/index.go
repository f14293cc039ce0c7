// Package index implements component D: the single mutable handle on the
// on-disk full-text index. Built on github.com/blevesearch/bleve/v2,
// which supplies the segment store, the default word-splitting analyzer,
// and BM25-style scoring that spec.md's design leans on directly.
package index

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
)

// SchemaVersion is the version constant embedded with the index.
// A mismatch on Open forces a full rebuild, per spec.md §3/§7.
const SchemaVersion = 2

// schemaVersionKey is the bleve internal key-value slot (SetInternal /
// GetInternal) used to stamp the index with its schema version.
var schemaVersionKey = []byte("schema_version")

// ErrSchemaMismatch is returned by Open when the on-disk index's schema
// version does not match SchemaVersion. Callers must treat this as a
// rebuild signal: remove and recreate the index directory.
var ErrSchemaMismatch = errors.New("index schema mismatch: rebuild required")

// Writer owns the single mutable handle on the full-text index.
type Writer struct {
	idx bleve.Index
}

// doc is the bleve document shape. Identifier fields are tokenized text
// (the default analyzer splits on non-alphanumerics, which is exactly
// the hyphen-segment behavior spec.md §4.G/§9 designs around) plus a
// stored-only "fast" copy is unnecessary in bleve — stored fields are
// retrievable directly, so every field here is both indexed and stored.
type doc struct {
	Content        string    `json:"content"`
	UUID           string    `json:"uuid"`
	ParentUUID     string    `json:"parent_uuid"`
	SessionID      string    `json:"session_id"`
	Project        string    `json:"project"`
	ProjectPath    string    `json:"project_path"`
	AgentID        string    `json:"agent_id"`
	Timestamp      time.Time `json:"timestamp"`
	Role           string    `json:"role"`
	Model          string    `json:"model"`
	Technologies   string    `json:"technologies"`
	CodeLanguages  string    `json:"code_languages"`
	ToolsMentioned string    `json:"tools_mentioned"`
	HasCode        bool      `json:"has_code"`
	HasError       bool      `json:"has_error"`
	IsSidechain    bool      `json:"is_sidechain"`
	SequenceNum    uint64    `json:"sequence_num"`
}

func recordToDoc(r *model.MessageRecord) doc {
	return doc{
		Content:        r.Content,
		UUID:           r.UUID,
		ParentUUID:     r.ParentUUID,
		SessionID:      r.SessionID,
		Project:        r.Project,
		ProjectPath:    r.ProjectPath,
		AgentID:        r.AgentID,
		Timestamp:      r.Timestamp,
		Role:           string(r.Role),
		Model:          r.Model,
		Technologies:   strings.Join(r.Technologies, " "),
		CodeLanguages:  strings.Join(r.CodeLanguages, " "),
		ToolsMentioned: strings.Join(r.ToolsMentioned, " "),
		HasCode:        r.HasCode,
		HasError:       r.HasError,
		IsSidechain:    r.IsSidechain,
		SequenceNum:    r.SequenceNum,
	}
}

func buildMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	dateField := bleve.NewDateTimeFieldMapping()
	boolField := bleve.NewBooleanFieldMapping()
	numField := bleve.NewNumericFieldMapping()

	record := bleve.NewDocumentMapping()
	record.AddFieldMappingsAt("content", textField)
	record.AddFieldMappingsAt("uuid", textField)
	record.AddFieldMappingsAt("parent_uuid", textField)
	record.AddFieldMappingsAt("session_id", textField)
	record.AddFieldMappingsAt("project", textField)
	record.AddFieldMappingsAt("project_path", textField)
	record.AddFieldMappingsAt("agent_id", textField)
	record.AddFieldMappingsAt("timestamp", dateField)
	record.AddFieldMappingsAt("role", textField)
	record.AddFieldMappingsAt("model", textField)
	record.AddFieldMappingsAt("technologies", textField)
	record.AddFieldMappingsAt("code_languages", textField)
	record.AddFieldMappingsAt("tools_mentioned", textField)
	record.AddFieldMappingsAt("has_code", boolField)
	record.AddFieldMappingsAt("has_error", boolField)
	record.AddFieldMappingsAt("is_sidechain", boolField)
	record.AddFieldMappingsAt("sequence_num", numField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = record
	return im
}

// Create initializes a new index directory and stamps it with
// SchemaVersion. It takes no heap budget: bleve has no writer-heap
// setting, so the configured budget is applied by the cache manager,
// which commits its batch whenever the buffered record count crosses
// the threshold set by cache.Manager.SetWriterHeapMB.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, err
	}
	versionBytes := []byte(fmt.Sprintf("%d", SchemaVersion))
	if err := idx.SetInternal(schemaVersionKey, versionBytes); err != nil {
		idx.Close()
		return nil, err
	}
	return &Writer{idx: idx}, nil
}

// Open reopens an existing index, validating its schema version.
// A mismatch returns ErrSchemaMismatch; the caller (component E/H)
// treats this as a rebuild signal and recreates the directory via
// Create.
func Open(path string) (*Writer, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, err
	}
	raw, err := idx.GetInternal(schemaVersionKey)
	version := -1
	if err == nil && len(raw) > 0 {
		fmt.Sscanf(string(raw), "%d", &version)
	}
	if version != SchemaVersion {
		idx.Close()
		return nil, ErrSchemaMismatch
	}
	return &Writer{idx: idx}, nil
}

// Close releases the underlying index handle.
func (w *Writer) Close() error {
	return w.idx.Close()
}

// Underlying returns the raw bleve index. The search engine (component
// G) wraps this same handle via search.New rather than opening its own,
// and shares the document shape defined here.
func (w *Writer) Underlying() bleve.Index {
	return w.idx
}

// DeleteSession queues deletion of every record whose session_id
// matches sessionID. Because the default analyzer tokenizes UUIDs on
// hyphens, matching is performed on the first hyphen-separated segment,
// per spec.md §4.D — collision probability is negligible for UUIDs and
// callers always follow a delete with a re-append from the source file.
func (w *Writer) DeleteSession(batch *bleve.Batch, sessionID string) error {
	segment := firstSegment(sessionID)
	termQuery := query.NewTermQuery(segment)
	termQuery.SetField("session_id")
	req := bleve.NewSearchRequest(termQuery)
	req.Fields = []string{"session_id"}
	req.Size = 10000
	result, err := w.idx.Search(req)
	if err != nil {
		return err
	}
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	return nil
}

// Append adds records to batch. Callers must order DeleteSession calls
// before Append calls within the same batch, per spec.md §4.D.
func (w *Writer) Append(batch *bleve.Batch, records []model.MessageRecord) error {
	for i := range records {
		r := &records[i]
		if err := batch.Index(r.UUID, recordToDoc(r)); err != nil {
			return err
		}
	}
	return nil
}

// NewBatch returns an empty batch for staging deletes and appends.
func (w *Writer) NewBatch() *bleve.Batch {
	return w.idx.NewBatch()
}

// Commit makes batch's writes visible to readers.
func (w *Writer) Commit(batch *bleve.Batch) error {
	return w.idx.Batch(batch)
}

func firstSegment(id string) string {
	if i := strings.IndexByte(id, '-'); i >= 0 {
		return id[:i]
	}
	return id
}
