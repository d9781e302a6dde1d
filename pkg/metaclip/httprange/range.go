// Package httprange resolves client byte-range requests against a known
// content length. Resolution is a pure function so the serving window and
// status decision can be tested independently of any handler.
//
// Accepted syntax is "bytes=<start>-<end>" and "bytes=<start>-". Multi-range
// requests and suffix ranges ("bytes=-N") are rejected as malformed rather
// than partially served.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange indicates a range spec that does not match the single
	// start-end or start-open form. Maps to a 400-class response.
	ErrInvalidRange = errors.New("invalid range format")

	// ErrNotSatisfiable indicates a well-formed range outside [0, total).
	// Maps to a 416-class response.
	ErrNotSatisfiable = errors.New("range not satisfiable")
)

// Range is a resolved serving window over content of Total bytes.
type Range struct {
	Start  int64
	End    int64
	Length int64
	Total  int64

	// Partial is true when the response should be 206 with a Content-Range
	// descriptor, false for a full 200 response.
	Partial bool
}

// ContentRange returns the "bytes start-end/total" descriptor for a partial
// response.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Total)
}

// Unsatisfiable returns the "bytes */total" descriptor sent with a 416
// response.
func Unsatisfiable(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}

// Resolve computes the serving window for a requested range spec against
// total content length. An empty spec selects the full content. A requested
// end beyond the last byte clamps to total-1; that is the one tolerated
// out-of-bounds value.
func Resolve(spec string, total int64) (Range, error) {
	if spec == "" {
		return Range{Start: 0, End: total - 1, Length: total, Total: total}, nil
	}

	const prefix = "bytes="
	if !strings.HasPrefix(spec, prefix) {
		return Range{}, ErrInvalidRange
	}
	body := spec[len(prefix):]

	// Reject multi-range up front instead of silently serving the first
	// sub-range.
	if strings.ContainsRune(body, ',') {
		return Range{}, fmt.Errorf("%w: multi-range not supported", ErrInvalidRange)
	}

	startStr, endStr, ok := strings.Cut(body, "-")
	if !ok {
		return Range{}, ErrInvalidRange
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return Range{}, ErrInvalidRange
	}

	end := total - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return Range{}, ErrInvalidRange
		}
		if start > end {
			return Range{}, ErrNotSatisfiable
		}
		if end > total-1 {
			end = total - 1
		}
	}

	if start >= total {
		return Range{}, ErrNotSatisfiable
	}

	return Range{
		Start:   start,
		End:     end,
		Length:  end - start + 1,
		Total:   total,
		Partial: true,
	}, nil
}
