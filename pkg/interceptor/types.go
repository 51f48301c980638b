// Package interceptor implements the client-side view interceptor: it
// wraps a native database handle so that view(ddoc, view, params) calls are
// classified as sorted-set or pass-through and answered accordingly,
// without the application ever knowing the query was diverted.
package interceptor

import "context"

// ViewResponse is the shape returned by both a native view call and a
// diverted sorted-set call, so callers can treat them uniformly.
type ViewResponse struct {
	Offset    int       `json:"offset"`
	TotalRows int       `json:"total_rows"`
	Rows      []ViewRow `json:"rows"`
}

// ViewRow is one row of a view response.
type ViewRow struct {
	ID    string   `json:"id"`
	Key   any      `json:"key"`
	Value any      `json:"value,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// Viewer is the narrow capability a wrapped native database handle must
// provide. Any concrete CouchDB client satisfying this shape can be
// wrapped by New, mirroring how the teacher wraps a concrete driver behind
// a capability interface owned by the consuming package.
type Viewer interface {
	View(ctx context.Context, ddoc, view string, params map[string]any) (ViewResponse, error)
}
