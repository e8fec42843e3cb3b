package models

import "errors"

// Core error kinds. Callers match these with errors.Is; the HTTP layer maps
// them to status codes.
var (
	// ErrNotFound means an id did not resolve to a row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRange means insert or move parameters fall outside the
	// playlist's current bounds, or the destination lies inside the moved
	// range.
	ErrInvalidRange = errors.New("invalid range")

	// ErrBadID means an opaque id could not be decoded.
	ErrBadID = errors.New("bad id")

	// ErrConflict means id allocation kept colliding with existing primary
	// keys after the retry bound.
	ErrConflict = errors.New("id conflict")

	// ErrIngestRejected means neither the tag nor the probe yielded a
	// duration for an uploaded file.
	ErrIngestRejected = errors.New("ingest rejected")

	// ErrStoreUnavailable means the database kept refusing work (pool
	// exhaustion or I/O failure) after retries.
	ErrStoreUnavailable = errors.New("store unavailable")
)
