package storage

import (
	"strconv"
	"strings"
)

// RequestRange is a parsed but unresolved Range header value.
// Start == -1 means a suffix range of the last Suffix bytes;
// End == -1 means open-ended.
type RequestRange struct {
	Start  int64
	End    int64
	Suffix int64
}

// ParseRange parses a single-interval "bytes=" Range header. A missing,
// malformed or multi-interval header returns nil, per RFC 9110 a server
// may ignore such headers and serve the full representation.
func ParseRange(header string) *RequestRange {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil
	}
	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return nil
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		// suffix range: last N bytes
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return nil
		}
		return &RequestRange{Start: -1, End: -1, Suffix: n}
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return nil
	}
	if last == "" {
		return &RequestRange{Start: start, End: -1}
	}
	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return nil
	}
	return &RequestRange{Start: start, End: end}
}

// Resolve clamps the request against the resource length. A start
// beyond the last byte is unsatisfiable and reports the true length.
func (r *RequestRange) Resolve(length int64) (ByteRange, error) {
	if r.Start < 0 {
		// suffix range
		n := r.Suffix
		if n > length {
			n = length
		}
		if n == 0 {
			return ByteRange{}, &RangeNotSatisfiableError{Length: length}
		}
		return ByteRange{Start: length - n, Length: n}, nil
	}
	if r.Start >= length {
		return ByteRange{}, &RangeNotSatisfiableError{Length: length}
	}
	end := r.End
	if end < 0 || end >= length {
		end = length - 1
	}
	return ByteRange{Start: r.Start, Length: end - r.Start + 1}, nil
}
