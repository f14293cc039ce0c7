// Package search implements component G: the read-only BM25 search
// engine layered on top of the index bleve.Index handle, plus the
// context-window (grep -C style) assembly spec.md §4.G describes.
package search

import (
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
)

// MaxSessionMessages caps the number of hits retrieved for a single
// session fetch (get_session_messages), per spec.md §4.G.
const MaxSessionMessages = 5000

const snippetWindowWords = 30

// Engine is a read-only handle over the full-text index, used by the
// CLI and MCP tool-call server to run queries. It is safe for
// concurrent use by multiple goroutines.
type Engine struct {
	idx bleve.Index
}

// Open opens the index at path read-only for searching.
func Open(path string) (*Engine, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, err
	}
	return &Engine{idx: idx}, nil
}

// New wraps an already-open index handle, e.g. shared with an
// index.Writer via Writer.Underlying() in single-process deployments.
func New(idx bleve.Index) *Engine {
	return &Engine{idx: idx}
}

// Close releases the underlying index handle. Only call this if the
// Engine owns the handle (constructed via Open, not New).
func (e *Engine) Close() error {
	return e.idx.Close()
}

// projectFilterSegments splits a project filter into lowercased
// alphanumeric segments, the way the default analyzer tokenizes text
// at indexing time — mirrors project_filter_segments in search.rs.
func projectFilterSegments(filter string) []string {
	return splitAlnum(strings.ToLower(filter))
}

func splitAlnum(s string) []string {
	var segs []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return segs
}

// buildProjectQuery ANDs a TermQuery per segment against field, the
// same segment-AND approach DeleteSession and get_session_messages
// use for hyphen-tokenized UUIDs.
func buildProjectQuery(field string, segments []string) query.Query {
	if len(segments) == 0 {
		return nil
	}
	conj := bleve.NewConjunctionQuery()
	for _, seg := range segments {
		tq := query.NewTermQuery(seg)
		tq.SetField(field)
		conj.AddQuery(tq)
	}
	return conj
}

// projectMatches re-verifies a segment-query hit, the way tantivy's
// post-filter step does: the project must equal the filter's last path
// component, ignoring case. The analyzer's segment match is necessary
// but not sufficient (a project named "bar-foo" contains both segments
// of the filter "foo-bar").
func projectMatches(project, filter string) bool {
	return strings.EqualFold(lastPathComponent(project), lastPathComponent(filter))
}

func lastPathComponent(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func hyphenSegments(id string) []string {
	if id == "" {
		return nil
	}
	return strings.Split(id, "-")
}

// buildSessionQuery ANDs a TermQuery per hyphen segment against
// session_id, matching the segment-AND convention used throughout the
// index for UUID fields.
func buildSessionQuery(segments []string) query.Query {
	if len(segments) == 0 {
		return nil
	}
	conj := bleve.NewConjunctionQuery()
	for _, seg := range segments {
		tq := query.NewTermQuery(seg)
		tq.SetField("session_id")
		conj.AddQuery(tq)
	}
	return conj
}

// buildTextQuery ORs one match query for text per default field a
// conversational search spans: content, session_id, project. The text
// is analyzed as plain words; query-string syntax (field prefixes,
// +/- operators, quoted phrases) is not interpreted. Empty text
// matches everything (a bare filter-only query).
func buildTextQuery(text string) query.Query {
	if strings.TrimSpace(text) == "" {
		return bleve.NewMatchAllQuery()
	}
	dq := bleve.NewDisjunctionQuery()
	for _, field := range []string{"content", "session_id", "project"} {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(field)
		dq.AddQuery(mq)
	}
	return dq
}

func docFields() []string {
	return []string{
		"content", "uuid", "parent_uuid", "session_id", "project", "project_path",
		"agent_id", "timestamp", "role", "model", "technologies", "code_languages",
		"tools_mentioned", "has_code", "has_error", "is_sidechain", "sequence_num",
	}
}

func hitToRecord(hit *bsearch.DocumentMatch) model.MessageRecord {
	get := func(k string) string {
		v, _ := hit.Fields[k].(string)
		return v
	}
	getBool := func(k string) bool {
		v, _ := hit.Fields[k].(bool)
		return v
	}
	var ts time.Time
	if s := get("timestamp"); s != "" {
		ts, _ = time.Parse(time.RFC3339, s)
	}
	var seq uint64
	if n, ok := hit.Fields["sequence_num"].(float64); ok {
		seq = uint64(n)
	}
	return model.MessageRecord{
		UUID:           get("uuid"),
		ParentUUID:     get("parent_uuid"),
		SessionID:      get("session_id"),
		Project:        get("project"),
		ProjectPath:    get("project_path"),
		AgentID:        get("agent_id"),
		Timestamp:      ts,
		Role:           model.Role(get("role")),
		Content:        get("content"),
		Model:          get("model"),
		SequenceNum:    seq,
		IsSidechain:    getBool("is_sidechain"),
		Technologies:   splitSpace(get("technologies")),
		CodeLanguages:  splitSpace(get("code_languages")),
		ToolsMentioned: splitSpace(get("tools_mentioned")),
		HasCode:        getBool("has_code"),
		HasError:       getBool("has_error"),
	}
}

func splitSpace(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// Search runs q against the index and returns ranked, filtered hits.
// Project/session/date filters are applied as a post-filter in
// addition to the segment queries, matching search.rs's two-stage
// approach: the analyzer's tokenization only approximates the filter,
// so every hit is re-checked against the literal filter string.
//
// A literal q.Limit == 0 returns an empty list, per spec.md's boundary
// behavior; callers that want the default page size must set it
// themselves before building the query.
func (e *Engine) Search(q model.Query) ([]model.Result, error) {
	if q.Limit == 0 {
		return nil, nil
	}

	parts := bleve.NewConjunctionQuery()
	parts.AddQuery(buildTextQuery(q.Text))

	if q.ProjectFilter != "" {
		if pq := buildProjectQuery("project", projectFilterSegments(q.ProjectFilter)); pq != nil {
			parts.AddQuery(pq)
		}
	}
	if q.SessionFilter != "" {
		if sq := buildSessionQuery(hyphenSegments(q.SessionFilter)); sq != nil {
			parts.AddQuery(sq)
		}
	}

	limit := q.Limit
	if limit < 0 {
		limit = 0
	}

	req := bleve.NewSearchRequestOptions(parts, limit*3+10, 0, false)
	req.Fields = docFields()
	res, err := e.idx.Search(req)
	if err != nil {
		return nil, err
	}

	var results []model.Result
	for _, hit := range res.Hits {
		rec := hitToRecord(hit)

		if q.SessionFilter != "" && !strings.HasPrefix(rec.SessionID, q.SessionFilter) {
			continue
		}
		if q.ProjectFilter != "" && !projectMatches(rec.Project, q.ProjectFilter) {
			continue
		}
		if !q.After.IsZero() && rec.Timestamp.Before(q.After) {
			continue
		}
		if !q.Before.IsZero() && rec.Timestamp.After(q.Before) {
			continue
		}
		if q.IncludeFilter != nil && !q.IncludeFilter(&rec) {
			continue
		}

		results = append(results, model.Result{
			MessageRecord: rec,
			Score:         hit.Score,
			Snippet:       buildSnippet(rec.Content, q.Text),
		})

		if len(results) >= limit {
			break
		}
	}

	applySort(results, q.Sort)
	return results, nil
}

func applySort(results []model.Result, order model.SortOrder) {
	switch order {
	case model.SortDateDesc:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Timestamp.After(results[j].Timestamp) })
	case model.SortDateAsc:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Timestamp.Before(results[j].Timestamp) })
	default: // model.SortRelevance: already ordered by BM25 score
	}
}

// buildSnippet implements the ≤30-token-passthrough / sliding-window
// scoring snippet algorithm from search.rs: content at or under the
// window size is returned whole; otherwise the 30-word window scoring
// highest on case-insensitive query-word substring matches wins, with
// the leftmost such window breaking ties, and ellipses mark truncation.
func buildSnippet(content, queryText string) string {
	words := strings.Fields(content)
	if len(words) <= snippetWindowWords {
		return content
	}

	queryWords := strings.Fields(strings.ToLower(queryText))

	bestStart := 0
	bestScore := -1
	for start := 0; start+snippetWindowWords <= len(words) || start == 0; start += 1 {
		end := start + snippetWindowWords
		if end > len(words) {
			end = len(words)
		}
		window := strings.ToLower(strings.Join(words[start:end], " "))
		score := 0
		for _, qw := range queryWords {
			if qw == "" {
				continue
			}
			score += strings.Count(window, qw)
		}
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
		if end == len(words) {
			break
		}
	}

	end := bestStart + snippetWindowWords
	if end > len(words) {
		end = len(words)
	}
	snippet := strings.Join(words[bestStart:end], " ")
	if bestStart > 0 {
		snippet = "… " + snippet
	}
	if end < len(words) {
		snippet = snippet + " …"
	}
	return snippet
}

// GetSessionMessages returns every indexed message for sessionID,
// sorted by sequence number, per spec.md §4.G. Matching uses a
// hyphen-segment AND-query with a literal-prefix post-filter, the
// same two-stage approach Search uses for project/session filters.
func (e *Engine) GetSessionMessages(sessionID string) ([]model.Result, error) {
	sq := buildSessionQuery(hyphenSegments(sessionID))
	if sq == nil {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(sq, MaxSessionMessages, 0, false)
	req.Fields = docFields()
	res, err := e.idx.Search(req)
	if err != nil {
		return nil, err
	}

	var results []model.Result
	for _, hit := range res.Hits {
		rec := hitToRecord(hit)
		if rec.SessionID != sessionID && !strings.HasPrefix(rec.SessionID, sessionID) {
			continue
		}
		results = append(results, model.Result{MessageRecord: rec, Score: hit.Score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].SequenceNum < results[j].SequenceNum })
	return results, nil
}

// GetMessagesByUUID looks up each uuid via its own hyphen-segment
// AND-query, taking the first hit whose literal uuid matches exactly
// or as a prefix (short-uuid lookups), per search.rs's
// get_messages_by_uuid.
func (e *Engine) GetMessagesByUUID(uuids []string) ([]model.Result, error) {
	var results []model.Result
	for _, id := range uuids {
		segments := hyphenSegments(id)
		if len(segments) == 0 {
			continue
		}
		conj := bleve.NewConjunctionQuery()
		for _, seg := range segments {
			t := query.NewTermQuery(seg)
			t.SetField("uuid")
			conj.AddQuery(t)
		}

		req := bleve.NewSearchRequestOptions(conj, 10, 0, false)
		req.Fields = docFields()
		res, err := e.idx.Search(req)
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits {
			rec := hitToRecord(hit)
			if rec.UUID == id || strings.HasPrefix(rec.UUID, id) {
				results = append(results, model.Result{MessageRecord: rec, Score: hit.Score})
				break
			}
		}
	}
	return results, nil
}

// SearchWithContext runs q, then for each match assembles a
// grep -C-style context window from the match's full session, per
// spec.md §4.G steps 1-6 / search.rs's search_with_context.
func (e *Engine) SearchWithContext(q model.Query, contextBefore, contextAfter int) ([]model.ContextWindow, error) {
	sortBy := q.Sort
	matches, err := e.Search(q)
	if err != nil {
		return nil, err
	}

	var windows []model.ContextWindow
	for _, match := range matches {
		sessionMessages, err := e.GetSessionMessages(match.SessionID)
		if err != nil {
			return nil, err
		}

		if len(sessionMessages) == 0 {
			windows = append(windows, model.ContextWindow{
				Match:        match,
				Window:       []model.MessageRecord{match.MessageRecord},
				MatchIndex:   0,
				SessionTotal: 1,
			})
			continue
		}

		sort.SliceStable(sessionMessages, func(i, j int) bool {
			return sessionMessages[i].SequenceNum < sessionMessages[j].SequenceNum
		})

		sessionTotal := 0
		for _, m := range sessionMessages {
			if m.IsDisplayable() {
				sessionTotal++
			}
		}

		matchIdx := -1
		for i, m := range sessionMessages {
			if m.UUID == match.UUID {
				matchIdx = i
				break
			}
		}
		if matchIdx < 0 {
			for i, m := range sessionMessages {
				if m.SequenceNum == match.SequenceNum {
					matchIdx = i
					break
				}
			}
		}

		if matchIdx < 0 {
			windows = append(windows, model.ContextWindow{
				Match:        match,
				Window:       []model.MessageRecord{match.MessageRecord},
				MatchIndex:   0,
				SessionTotal: sessionTotal,
			})
			continue
		}

		start := matchIdx - contextBefore
		if start < 0 {
			start = 0
		}
		end := matchIdx + contextAfter + 1
		if end > len(sessionMessages) {
			end = len(sessionMessages)
		}

		var window []model.MessageRecord
		newMatchIdx := 0
		for i := start; i < end; i++ {
			m := sessionMessages[i]
			if m.MessageRecord.IsDisplayable() {
				if i == matchIdx {
					newMatchIdx = len(window)
				}
				window = append(window, m.MessageRecord)
			}
		}

		if len(window) == 0 {
			window = []model.MessageRecord{match.MessageRecord}
			newMatchIdx = 0
		}

		windows = append(windows, model.ContextWindow{
			Match:        match,
			Window:       window,
			MatchIndex:   newMatchIdx,
			SessionTotal: sessionTotal,
		})
	}

	switch sortBy {
	case model.SortDateDesc:
		sort.SliceStable(windows, func(i, j int) bool { return windows[i].Match.Timestamp.After(windows[j].Match.Timestamp) })
	case model.SortDateAsc:
		sort.SliceStable(windows, func(i, j int) bool { return windows[i].Match.Timestamp.Before(windows[j].Match.Timestamp) })
	default: // already BM25-ordered
	}

	return windows, nil
}

// DedupeBySession implements the front-end deduplication-by-session
// policy from spec.md: the engine itself returns raw BM25-ordered hits,
// and callers (the MCP server, the CLI) fetch limit*3 of them and keep
// the first limit whose session_id hasn't been seen yet, after
// dropping anything in excludeSessions/excludeProjects. A literal
// limit == 0 returns an empty list, matching Search's own boundary
// behavior — callers needing a default page size must apply it
// themselves, not rely on this function to substitute one.
func DedupeBySession(results []model.Result, limit int, excludeSessions, excludeProjects []string) []model.Result {
	capHint := limit
	if capHint < 0 {
		capHint = 0
	}
	seen := make(map[string]bool, capHint)
	out := make([]model.Result, 0, capHint)
	for _, r := range results {
		if len(out) >= limit {
			break
		}
		if stringInList(r.SessionID, excludeSessions) || stringInList(r.Project, excludeProjects) {
			continue
		}
		if seen[r.SessionID] {
			continue
		}
		seen[r.SessionID] = true
		out = append(out, r)
	}
	return out
}

func stringInList(needle string, haystack []string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

