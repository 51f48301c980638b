package interceptor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/l7mp/supercouch/pkg/sset"
)

// Interceptor wraps a native database handle so that View calls targeting
// the $SSET marker are transparently rewritten into sorted-set service
// calls; everything else is delegated unchanged.
type Interceptor struct {
	native  Viewer
	service sset.Service
	log     logr.Logger
}

// New wraps native with an interceptor backed by service.
func New(native Viewer, service sset.Service, log logr.Logger) *Interceptor {
	return &Interceptor{native: native, service: service, log: log.WithName("interceptor")}
}

// View classifies params and either rewrites the request into one or more
// sorted-set range calls, or delegates to the wrapped native handle.
func (i *Interceptor) View(ctx context.Context, ddoc, view string, params map[string]any) (ViewResponse, error) {
	kind, keys, start, end := classify(params)

	switch kind {
	case kindKeys:
		return i.viewKeys(ctx, keys)
	case kindRange:
		return i.viewRange(ctx, params, start, end)
	default:
		return i.native.View(ctx, ddoc, view, params)
	}
}

func (i *Interceptor) viewKeys(ctx context.Context, keys []any) (ViewResponse, error) {
	rows := make([]ViewRow, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for idx, k := range keys {
		idx, k := idx, k
		g.Go(func() error {
			arr, _ := k.([]any)
			database, idPath, err := splitSSetKey(arr)
			if err != nil {
				return err
			}

			resp, err := i.service.RangeByIndex(gctx, database, idPath, sset.RangeQuery{
				Min:           -1,
				Max:           -1,
				IncludeScores: true,
				IncludeTotal:  false,
			})
			if err != nil {
				return err
			}

			row := ViewRow{ID: "#SSET", Key: joinKey(arr)}
			if len(resp.Rows) > 0 {
				r := resp.Rows[0]
				row.Value = r.Value
				if r.HasScore {
					score := r.Score
					row.Score = &score
				}
			}
			rows[idx] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ViewResponse{}, newKeysQueryFailedError(err)
	}

	return ViewResponse{Offset: 0, TotalRows: len(keys), Rows: rows}, nil
}

func (i *Interceptor) viewRange(ctx context.Context, params map[string]any, start, end []any) (ViewResponse, error) {
	database, idPath, err := splitSSetKey(start[:len(start)-1])
	if err != nil {
		return ViewResponse{}, newRangeQueryFailedError(err)
	}

	min, ok := numberToFloat(start[len(start)-1])
	if !ok {
		return ViewResponse{}, newRangeQueryFailedError(fmt.Errorf("range query min is not numeric: %#v", start[len(start)-1]))
	}
	max, ok := numberToFloat(end[len(end)-1])
	if !ok {
		return ViewResponse{}, newRangeQueryFailedError(fmt.Errorf("range query max is not numeric: %#v", end[len(end)-1]))
	}

	descending, _ := params["descending"].(bool)
	withScores := boolOption(params, "include_scores", true)
	withTotalRows := boolOption(params, "include_total_rows", true)

	skip, hasSkip := intOption(params, "skip")
	limit, hasLimit := intOption(params, "limit")

	order := sset.Asc
	if descending {
		order = sset.Desc
	}

	query := sset.RangeQuery{
		Min:           min,
		Max:           max,
		Order:         order,
		IncludeTotal:  withTotalRows,
		IncludeScores: withScores,
		HasPaging:     hasSkip || hasLimit,
		Offset:        skip,
		Count:         limit,
	}

	resp, err := i.service.RangeByScore(ctx, database, idPath, query)
	if err != nil {
		return ViewResponse{}, newRangeQueryFailedError(err)
	}

	rows := make([]ViewRow, len(resp.Rows))
	keyStr := joinKey(start[:len(start)-1])
	for idx, r := range resp.Rows {
		row := ViewRow{ID: "#SSET", Key: keyStr, Value: r.Value}
		if r.HasScore {
			score := r.Score
			row.Score = &score
		}
		rows[idx] = row
	}

	return ViewResponse{Offset: resp.Paging.Offset, TotalRows: resp.Paging.Total, Rows: rows}, nil
}

func splitSSetKey(arr []any) (database string, idPath []string, err error) {
	if len(arr) < 2 {
		return "", nil, fmt.Errorf("$SSET key too short: %#v", arr)
	}
	database, ok := arr[1].(string)
	if !ok {
		return "", nil, fmt.Errorf("$SSET key database must be a string, got %#v", arr[1])
	}
	for _, seg := range arr[2:] {
		s, ok := seg.(string)
		if !ok {
			return "", nil, fmt.Errorf("$SSET key id-path segment must be a string, got %#v", seg)
		}
		idPath = append(idPath, s)
	}
	return database, idPath, nil
}

// joinKey renders a $SSET key array as the comma-joined string used in
// ViewRow.Key, e.g. ["$SSET","Users","u7"] -> "$SSET,Users,u7".
func joinKey(arr []any) string {
	parts := make([]string, len(arr))
	for i, v := range arr {
		parts[i] = stringify(v)
	}
	return strings.Join(parts, ",")
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func boolOption(params map[string]any, name string, def bool) bool {
	if v, ok := params[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func numberToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func intOption(params map[string]any, name string) (int, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
