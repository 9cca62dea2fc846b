package radial

import "fmt"

// ConsistencyError reports a structural defect in the input tables for one
// imaging file: an edge endpoint that does not resolve to a spot, endpoints
// on different tracks, or endpoints that are not exactly one frame apart.
// These indicate upstream data-integrity problems and are never absorbed;
// they fail the file (and only the file) they occur in.
type ConsistencyError struct {
	FileID string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent tracking data for file %s: %s", e.FileID, e.Detail)
}

func consistencyErrorf(fileID, format string, args ...interface{}) *ConsistencyError {
	return &ConsistencyError{FileID: fileID, Detail: fmt.Sprintf(format, args...)}
}
