package db

import "errors"

// Domain-level database error sentinels.
var (
	// Organisation errors
	ErrOrgNotFound = errors.New("organization not found")

	// Analysis errors
	ErrAnalysisNotFound = errors.New("analysis not found")
)
