// Package util holds small generic helpers shared across the sorted-set
// service, query-server engine and view interceptor.
package util

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// Map applies f element-wise: (a -> b) -> [a] -> [b].
func Map[T, U any](f func(T) U, s []T) []U {
	result := make([]U, len(s))
	for i, v := range s {
		result[i] = f(v)
	}
	return result
}

// Stringify renders v as a compact JSON string for diagnostics, falling
// back to a Go-syntax representation if v cannot be encoded.
func Stringify(v any) (s string) {
	defer func() {
		if recover() != nil {
			s = fmt.Sprintf("%#v", v)
		}
	}()
	return oj.JSON(v, nil)
}
