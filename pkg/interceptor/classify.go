package interceptor

// queryKind distinguishes the three ways a view request is handled.
type queryKind int

const (
	kindPassThrough queryKind = iota
	kindKeys
	kindRange
)

const ssetMarker = "$SSET"

// classify inspects params and decides whether the request is a sorted-set
// keys query, a sorted-set range query, or must pass through to the native
// view unchanged.
func classify(params map[string]any) (queryKind, []any, []any, []any) {
	if keys, ok := params["keys"].([]any); ok && len(keys) > 0 {
		if first, ok := keys[0].([]any); ok && isSSetKey(first) {
			return kindKeys, keys, nil, nil
		}
	}

	start, hasStart := lookupKey(params, "startkey", "start_key")
	end, hasEnd := lookupKey(params, "endkey", "end_key")
	if hasStart && hasEnd {
		startArr, okS := start.([]any)
		endArr, okE := end.([]any)
		if okS && okE && isSSetKey(startArr) && isSSetKey(endArr) && samePrefix(startArr, endArr) {
			return kindRange, nil, startArr, endArr
		}
	}

	return kindPassThrough, nil, nil, nil
}

func lookupKey(params map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := params[n]; ok {
			return v, true
		}
	}
	return nil, false
}

func isSSetKey(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	marker, ok := arr[0].(string)
	return ok && marker == ssetMarker
}

// samePrefix reports whether start and end are key arrays of equal length,
// whose last element is numeric on both sides and whose every element before
// the last is pairwise equal — the prefix that identifies the same sorted set
// on both ends of a range query. It does not check the $SSET marker; classify
// does that with isSSetKey.
func samePrefix(start, end []any) bool {
	if len(start) != len(end) || len(start) < 1 {
		return false
	}
	if !isNumber(start[len(start)-1]) || !isNumber(end[len(end)-1]) {
		return false
	}
	for i := 0; i < len(start)-1; i++ {
		if !deepEqual(start[i], end[i]) {
			return false
		}
	}
	return true
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return false
}

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		return a == b
	}
}
