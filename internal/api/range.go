package api

import (
	"errors"
	"strconv"
	"strings"
)

// byteRange is a resolved half-open-free byte window: both bounds inclusive,
// already clamped to the file size.
type byteRange struct {
	start int64
	end   int64
}

func (br byteRange) length() int64 {
	return br.end - br.start + 1
}

// errUnsatisfiableRange covers every Range header this server refuses: syntax
// errors, out-of-bounds starts, and multi-range requests. Multi-range is a
// deliberate limitation: audio players seek with a single range, and serving
// multipart/byteranges buys nothing here.
var errUnsatisfiableRange = errors.New("unsatisfiable range")

// parseByteRange resolves a Range header value against a file of the given
// size. An empty header means "whole file" and returns ok=false with no error.
func parseByteRange(header string, size int64) (byteRange, bool, error) {
	if header == "" {
		return byteRange{}, false, nil
	}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return byteRange{}, false, errUnsatisfiableRange
	}
	if strings.Contains(spec, ",") {
		return byteRange{}, false, errUnsatisfiableRange
	}

	startStr, endStr, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return byteRange{}, false, errUnsatisfiableRange
	}

	// Suffix form: bytes=-n serves the final n bytes. Unsatisfiable against
	// an empty file.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return byteRange{}, false, errUnsatisfiableRange
		}
		if n > size {
			n = size
		}
		return byteRange{start: size - n, end: size - 1}, true, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return byteRange{}, false, errUnsatisfiableRange
	}

	// Open-ended form: bytes=start- serves through EOF.
	if endStr == "" {
		return byteRange{start: start, end: size - 1}, true, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return byteRange{}, false, errUnsatisfiableRange
	}
	if end >= size {
		end = size - 1
	}

	return byteRange{start: start, end: end}, true, nil
}
