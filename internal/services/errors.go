package services

import "errors"

// Sentinel errors for the failure taxonomy of background jobs. Schema and
// type-mismatch failures are not sentinels; they carry row/column context in
// their message and always follow the verification rollback write.
var (
	// ErrPrecondition means a job was started against a template whose
	// persisted state does not allow it (not verified, no data source).
	ErrPrecondition = errors.New("precondition failed")
	// ErrNotFound means a required file or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrStore means a persisted-record read or write failed.
	ErrStore = errors.New("store error")
)
