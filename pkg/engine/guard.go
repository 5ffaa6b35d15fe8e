package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"streamguard/pkg/scan"
)

// GuardConfig holds configuration for creating a GuardProcessor.
type GuardConfig struct {
	Name      string
	Forbidden []byte // bytes that make an entry suspicious anywhere
	Marker    byte   // byte whose repetition ("--") makes an entry suspicious; 0 means scan.DefaultMarker
	Path      string // explicit path into a JSON entry
	Attribute string // well-known attribute, searched in common locations
}

// GuardProcessor drops entries that contain a forbidden byte or a marker run.
// With a Path or Attribute set, only that field of a JSON entry is inspected and entries
// without the field pass through (fail-open).
type GuardProcessor struct {
	name     string
	selector Selector

	mu      sync.Mutex
	scanner *scan.Scanner

	dropped atomic.Uint64
}

// NewGuardProcessor builds the forbidden set and scanner for cfg.
func NewGuardProcessor(cfg GuardConfig) (*GuardProcessor, error) {
	sel, err := NewSelector(cfg.Path, cfg.Attribute)
	if err != nil {
		return nil, fmt.Errorf("guard %s: %w", cfg.Name, err)
	}

	marker := cfg.Marker
	if marker == 0 {
		marker = scan.DefaultMarker
	}
	sc, err := scan.NewScannerWithMarker(scan.BuildForbiddenSet(cfg.Forbidden), marker)
	if err != nil {
		return nil, fmt.Errorf("guard %s: %w", cfg.Name, err)
	}

	return &GuardProcessor{
		name:     cfg.Name,
		selector: sel,
		scanner:  sc,
	}, nil
}

func (g *GuardProcessor) Name() string {
	return g.name
}

// Process reports drop=true for a suspicious entry. Each entry is an independent stream.
func (g *GuardProcessor) Process(ctx *ProcessingContext, entry []byte) ([]byte, bool, error) {
	value, ok := g.selector.Select(entry)
	if !ok {
		return entry, false, nil
	}

	g.mu.Lock()
	g.scanner.Reset()
	bad := g.scanner.Scan(value)
	g.mu.Unlock()

	if bad {
		g.dropped.Add(1)
	}
	return entry, bad, nil
}

// Dropped returns the number of entries this processor has rejected.
func (g *GuardProcessor) Dropped() uint64 {
	return g.dropped.Load()
}
