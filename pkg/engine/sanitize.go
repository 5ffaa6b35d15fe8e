package engine

import (
	"streamguard/pkg/scan"
)

// SanitizeProcessor repairs entries instead of dropping them: forbidden bytes are removed
// and every marker run is collapsed to a single marker.
type SanitizeProcessor struct {
	name   string
	set    *scan.ForbiddenSet
	marker byte
}

func NewSanitizeProcessor(name string, forbidden []byte, marker byte) *SanitizeProcessor {
	if marker == 0 {
		marker = scan.DefaultMarker
	}
	return &SanitizeProcessor{
		name:   name,
		set:    scan.BuildForbiddenSet(forbidden),
		marker: marker,
	}
}

func (s *SanitizeProcessor) Name() string {
	return s.name
}

func (s *SanitizeProcessor) Process(ctx *ProcessingContext, entry []byte) ([]byte, bool, error) {
	// Clean entries are returned as-is; only a dirty one pays for a copy.
	if !scan.Check(s.set, s.marker, entry) {
		return entry, false, nil
	}

	out := make([]byte, 0, len(entry))
	prevMarker := false
	for _, b := range entry {
		if s.set.Contains(b) {
			continue
		}
		if b == s.marker {
			if prevMarker {
				continue
			}
			prevMarker = true
		} else {
			prevMarker = false
		}
		out = append(out, b)
	}
	return out, false, nil
}
