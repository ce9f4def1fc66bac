// pkg/httplog/filter.go
package httplog

import (
	"strings"
)

// ResponseFilterFunc decides whether a response body is attached to its record.
type ResponseFilterFunc func(res *CapturedResponse) bool

// StatusFilter selects responses with one of codes. A code below 10 matches a
// whole class, e.g. 5 matches 500-599.
func StatusFilter(codes ...int) ResponseFilterFunc {
	return func(res *CapturedResponse) bool {
		for _, code := range codes {
			if code == res.StatusCode || code < 10 && res.StatusCode/100 == code {
				return true
			}
		}
		return false
	}
}

// PathFilter selects responses whose path equals one of paths, or starts with
// one ending in "*".
func PathFilter(paths ...string) ResponseFilterFunc {
	return func(res *CapturedResponse) bool {
		for _, p := range paths {
			if prefix, ok := strings.CutSuffix(p, "*"); ok {
				if strings.HasPrefix(res.Path, prefix) {
					return true
				}
				continue
			}
			if p == res.Path {
				return true
			}
		}
		return false
	}
}

// MethodFilter selects responses to one of methods (case-insensitive).
func MethodFilter(methods ...string) ResponseFilterFunc {
	return func(res *CapturedResponse) bool {
		for _, m := range methods {
			if strings.EqualFold(m, res.Method) {
				return true
			}
		}
		return false
	}
}

// AllFilters selects responses every filter selects. Nil filters are ignored.
func AllFilters(filters ...ResponseFilterFunc) ResponseFilterFunc {
	return func(res *CapturedResponse) bool {
		for _, f := range filters {
			if f != nil && !f(res) {
				return false
			}
		}
		return true
	}
}

// AnyFilter selects responses at least one filter selects.
func AnyFilter(filters ...ResponseFilterFunc) ResponseFilterFunc {
	return func(res *CapturedResponse) bool {
		for _, f := range filters {
			if f != nil && f(res) {
				return true
			}
		}
		return false
	}
}
