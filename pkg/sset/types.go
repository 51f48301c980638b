// Package sset defines the backend-agnostic sorted-set contract and its
// Redis-backed realization: add-with-score, keep-last/keep-all retention,
// range-by-index and range-by-score retrieval, paging, total count and
// atomic per-database batches.
package sset

import "context"

// Keep is the retention discipline for a write.
type Keep string

const (
	// AllValues keeps one entry per distinct value, retaining the largest
	// score ever submitted for that value.
	AllValues Keep = "ALL_VALUES"
	// LastValue keeps at most one entry total: the one that has ever been
	// inserted with the largest score.
	LastValue Keep = "LAST_VALUE"
)

// Valid reports whether k is one of the two recognized retention disciplines.
func (k Keep) Valid() bool {
	return k == AllValues || k == LastValue
}

// Operation is a single write intent against one sorted set.
type Operation struct {
	Database string
	IDPath   []string
	Score    float64
	Value    any
	Keep     Keep
}

// Order controls row ordering in a range query.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// RangeQuery describes a range-by-index or range-by-score retrieval.
//
// For index-mode queries Min/Max are integer ranks stored as float64 with
// negative values counting from the end (-1 is the last element). For
// score-mode queries Min/Max are score bounds. Both bounds are inclusive.
type RangeQuery struct {
	Min, Max      float64
	Offset        int
	Count         int
	HasPaging     bool
	Order         Order
	IncludeTotal  bool
	IncludeScores bool
}

// Row is one result row of a range query.
type Row struct {
	Value any
	Score float64
	// HasScore reports whether Score is meaningful; it is only populated
	// when the query asked for IncludeScores.
	HasScore bool
}

// Paging mirrors the paging block of a range response.
type Paging struct {
	Offset int
	Count  int
	Total  int
}

// RangeResponse is the result of a range-by-index or range-by-score call.
type RangeResponse struct {
	Paging Paging
	Rows   []Row
}

// Service is the abstract sorted-set contract. Redis is the only
// realization shipped, but callers depend on this interface so other
// backends can be plugged in without touching the query-server engine or
// the view interceptor.
type Service interface {
	// Process writes a batch of operations. Operations sharing the same
	// Database commit as one atomic transaction; groups for different
	// databases commit in parallel. The call resolves only once every
	// group has committed, or fails as soon as any group fails.
	Process(ctx context.Context, ops []Operation) error

	// RangeByIndex returns a range response where Min/Max of query are
	// interpreted as inclusive rank indices (negative counts from the end).
	RangeByIndex(ctx context.Context, database string, idPath []string, query RangeQuery) (RangeResponse, error)

	// RangeByScore returns a range response where Min/Max of query are
	// interpreted as inclusive score bounds.
	RangeByScore(ctx context.Context, database string, idPath []string, query RangeQuery) (RangeResponse, error)
}
