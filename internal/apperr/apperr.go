// Package apperr defines the small closed set of error kinds named by
// spec.md §7, so callers can discriminate with errors.Is/errors.As
// instead of string matching.
package apperr

import "errors"

var (
	// ErrMalformedInput marks a skippable per-record parse failure:
	// invalid JSON, a missing required field, or an unparseable
	// timestamp. Never fatal to a sweep.
	ErrMalformedInput = errors.New("malformed input")

	// ErrLockContention means the exclusive index lock was unavailable.
	ErrLockContention = errors.New("another instance may be running")

	// ErrEmptyCorpus means the corpus or index contains no data yet.
	ErrEmptyCorpus = errors.New("no conversations indexed yet")

	// ErrStaleNoResults means a search returned nothing while the quick
	// health check shows stale or new files — the caller should suggest
	// a reindex.
	ErrStaleNoResults = errors.New("no results; index may be stale")
)

// JSONRPCCode is the JSON-RPC 2.0 error code used for any error that
// escapes to the tool-call server's top level, per spec.md §7.
const JSONRPCCode = -32603
