package ingest

import (
	"streamguard/pkg/scan"
)

// Guard configures ingest-time rejection. Set is shared read-only by every connection;
// each connection gets its own Scanner.
type Guard struct {
	Set    *scan.ForbiddenSet
	Marker byte
}

// newScanner returns nil, nil when no guard is configured.
func (g *Guard) newScanner() (*scan.Scanner, error) {
	if g == nil {
		return nil, nil
	}
	marker := g.Marker
	if marker == 0 {
		marker = scan.DefaultMarker
	}
	return scan.NewScannerWithMarker(g.Set, marker)
}
