package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"streamguard/pkg/scan"
)

// DefaultChunkSize is the read size used by CheckReader when none is given.
const DefaultChunkSize = 32 * 1024

// CheckReader feeds r to sc in chunks of the given size, treating the whole reader as one
// stream. It returns as soon as the stream is judged suspicious, along with the number of
// bytes read so far. Cancellation is checked between reads.
func CheckReader(ctx context.Context, r io.Reader, sc *scan.Scanner, chunk int) (bool, int64, error) {
	if sc == nil {
		return false, 0, fmt.Errorf("nil scanner: %w", scan.ErrInvalidArgument)
	}
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	buf := make([]byte, chunk)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return false, total, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if sc.Scan(buf[:n]) {
				return true, total, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, total, nil
			}
			return false, total, err
		}
	}
}
