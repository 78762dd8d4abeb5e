package pkglog

import "context"

// NoRunID is what GetRunID returns for a context that never went through
// SetRunID.
const NoRunID = "[invalid_run_id]"

type runIDKey struct{}

// GetRunID returns the id of the pipeline run ctx belongs to.
//
// One id covers one CLI invocation or one scheduler tick, and it is shared by
// every step and task executed within it. Stats files record it as run_id and
// log records carry it as _cID.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return NoRunID
}

// SetRunID returns a copy of ctx tagged with the run id.
func SetRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}
