// Package ssettest provides an in-memory implementation of sset.Service for
// exercising the query-server engine and the view interceptor without a
// real Redis backend, mirroring the teacher's fake_cache.go idiom of a
// hand-rolled fake satisfying a narrow capability interface for tests.
package ssettest

import (
	"context"
	"sort"
	"sync"

	"github.com/ohler55/ojg/oj"

	"github.com/l7mp/supercouch/pkg/sset"
)

type entry struct {
	encoded string
	value   any
	score   float64
}

// FakeService is a correct, non-concurrent-per-key, in-memory realization
// of sset.Service. It implements the same retention and ordering
// invariants as the Redis realization (§3/§4.2 of the data model) so tests
// written against it exercise real semantics, not a stub.
type FakeService struct {
	mu   sync.Mutex
	sets map[string][]entry // key: BuildKey(database, idPath)
}

// NewFakeService returns an empty fake sorted-set service.
func NewFakeService() *FakeService {
	return &FakeService{sets: make(map[string][]entry)}
}

var _ sset.Service = (*FakeService)(nil)

func (f *FakeService) Process(ctx context.Context, ops []sset.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, op := range ops {
		if len(op.IDPath) == 0 {
			return sset.NewInvalidOperationError("id-path must be non-empty")
		}
		if !op.Keep.Valid() {
			return sset.NewInvalidOperationError("unrecognized keep")
		}
		key, err := sset.BuildKey(op.Database, op.IDPath)
		if err != nil {
			return err
		}
		encoded := oj.JSON(op.Value, &oj.Options{Sort: true})

		switch op.Keep {
		case sset.AllValues:
			f.applyAllValues(key, encoded, op.Value, op.Score)
		case sset.LastValue:
			f.applyLastValue(key, encoded, op.Value, op.Score)
		}
	}
	return nil
}

func (f *FakeService) applyAllValues(key, encoded string, value any, score float64) {
	set := f.sets[key]
	for i, e := range set {
		if e.encoded == encoded {
			if score > e.score {
				set[i].score = score
			}
			f.sets[key] = set
			return
		}
	}
	f.sets[key] = append(set, entry{encoded: encoded, value: value, score: score})
}

func (f *FakeService) applyLastValue(key, encoded string, value any, score float64) {
	set := f.sets[key]
	if len(set) == 0 {
		f.sets[key] = []entry{{encoded: encoded, value: value, score: score}}
		return
	}
	if score > set[0].score {
		f.sets[key] = []entry{{encoded: encoded, value: value, score: score}}
	}
	// a lower or equal score never displaces the retained maximum
}

func (f *FakeService) sorted(key string) []entry {
	set := append([]entry(nil), f.sets[key]...)
	sort.Slice(set, func(i, j int) bool {
		if set[i].score != set[j].score {
			return set[i].score < set[j].score
		}
		return set[i].encoded < set[j].encoded
	})
	return set
}

func (f *FakeService) RangeByIndex(ctx context.Context, database string, idPath []string, query sset.RangeQuery) (sset.RangeResponse, error) {
	key, err := sset.BuildKey(database, idPath)
	if err != nil {
		return sset.RangeResponse{}, err
	}

	f.mu.Lock()
	set := f.sorted(key)
	f.mu.Unlock()

	n := len(set)
	if query.Order == sset.Desc {
		reverse(set)
	}

	start := normalizeIndex(int(query.Min), n)
	stop := normalizeIndex(int(query.Max), n)

	rows := sliceRows(set, start, stop, query.IncludeScores)

	total := -1
	if query.IncludeTotal {
		if query.HasPaging {
			total = n
		} else {
			total = len(rows)
		}
	}
	paging := sset.Paging{Offset: 0, Count: -1, Total: total}
	if query.HasPaging {
		paging.Offset = query.Offset
		paging.Count = len(rows)
	}
	return sset.RangeResponse{Paging: paging, Rows: rows}, nil
}

func (f *FakeService) RangeByScore(ctx context.Context, database string, idPath []string, query sset.RangeQuery) (sset.RangeResponse, error) {
	key, err := sset.BuildKey(database, idPath)
	if err != nil {
		return sset.RangeResponse{}, err
	}

	f.mu.Lock()
	set := f.sorted(key)
	f.mu.Unlock()

	min, max := query.Min, query.Max
	desc := query.Order == sset.Desc

	filtered := make([]entry, 0, len(set))
	for _, e := range set {
		if e.score >= min && e.score <= max {
			filtered = append(filtered, e)
		}
	}
	total := len(filtered)

	if desc {
		reverse(filtered)
	}

	start, stop := 0, len(filtered)
	if query.HasPaging {
		offset := query.Offset
		if offset > len(filtered) {
			offset = len(filtered)
		}
		start = offset
		stop = len(filtered)
		if query.Count > 0 && start+query.Count < stop {
			stop = start + query.Count
		}
	}

	rows := rowsFromEntries(filtered[start:stop], query.IncludeScores)

	totalOut := -1
	if query.IncludeTotal {
		totalOut = total
	}
	paging := sset.Paging{Offset: 0, Count: -1, Total: totalOut}
	if query.HasPaging {
		paging.Offset = query.Offset
		paging.Count = len(rows)
	}
	return sset.RangeResponse{Paging: paging, Rows: rows}, nil
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		i = n + i
	}
	return i
}

func sliceRows(set []entry, start, stop int, withScores bool) []sset.Row {
	n := len(set)
	if n == 0 {
		return nil
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil
	}
	return rowsFromEntries(set[start:stop+1], withScores)
}

func rowsFromEntries(entries []entry, withScores bool) []sset.Row {
	rows := make([]sset.Row, len(entries))
	for i, e := range entries {
		rows[i] = sset.Row{Value: e.value, Score: e.score, HasScore: withScores}
	}
	return rows
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
