package queryserver

import (
	"fmt"

	"github.com/l7mp/supercouch/pkg/sset"
	"github.com/l7mp/supercouch/pkg/util"
)

// ssetMarker is the literal first element of a key array identifying a
// diverted emission or query. A sibling implementation is known to spell
// this "$SET" (missing the final T); that is treated as a bug here, not a
// variant to support.
const ssetMarker = "$SSET"

// emission is one normalized [key, value] record produced by a map function.
type emission struct {
	Key   any
	Value any
}

// normalizeEmitKey mirrors the engine's emit() binding: null/undefined key
// becomes nil, a string/number key becomes a one-element array, an
// array-like key passes through as-is.
func normalizeEmitKey(key any) any {
	switch k := key.(type) {
	case nil:
		return nil
	case []any:
		return k
	default:
		return []any{k}
	}
}

// classifyEmission inspects one emission and, if it carries the $SSET
// marker in canonical shape, returns the parsed sorted-set operation. ok is
// false when the key is not an array of at least three elements starting
// with the marker, in which case the emission must be passed through
// unchanged. A marked key whose database, id-path segments or value object
// are malformed yields ok true together with a non-nil err.
func classifyEmission(e emission) (op sset.Operation, ok bool, err error) {
	arr, isArr := e.Key.([]any)
	if !isArr || len(arr) < 3 {
		return sset.Operation{}, false, nil
	}
	marker, isStr := arr[0].(string)
	if !isStr || marker != ssetMarker {
		return sset.Operation{}, false, nil
	}

	database, isStr := arr[1].(string)
	if !isStr {
		return sset.Operation{}, true, fmt.Errorf("$SSET key database must be a string, got %#v", arr[1])
	}

	idPath := make([]string, 0, len(arr)-2)
	for _, seg := range arr[2:] {
		s, ok := seg.(string)
		if !ok {
			return sset.Operation{}, true, fmt.Errorf("$SSET key id-path segment must be a string, got %#v", seg)
		}
		idPath = append(idPath, s)
	}

	valMap, isMap := e.Value.(map[string]any)
	if !isMap {
		return sset.Operation{}, true, fmt.Errorf("$SSET value must be an object, got %s", util.Stringify(e.Value))
	}

	scoreAny, hasScore := valMap["score"]
	if !hasScore {
		return sset.Operation{}, true, fmt.Errorf("$SSET value missing numeric \"score\"")
	}
	score, isNum := toFloat(scoreAny)
	if !isNum {
		return sset.Operation{}, true, fmt.Errorf("$SSET value \"score\" must be a number, got %#v", scoreAny)
	}

	keep := sset.AllValues
	if keepAny, hasKeep := valMap["keep"]; hasKeep {
		keepStr, isStr := keepAny.(string)
		if !isStr {
			return sset.Operation{}, true, fmt.Errorf("$SSET value \"keep\" must be a string, got %#v", keepAny)
		}
		keep = sset.Keep(keepStr)
		if !keep.Valid() {
			return sset.Operation{}, true, fmt.Errorf("$SSET value has unrecognized \"keep\" %q", keepStr)
		}
	}

	return sset.Operation{
		Database: database,
		IDPath:   idPath,
		Score:    score,
		Value:    valMap["value"],
		Keep:     keep,
	}, true, nil
}

func toFloat(v any) (float64, bool) {
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
