package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// ProcessingContext holds per-worker state handed to every processor.
type ProcessingContext struct {
	context.Context
	Logger zerolog.Logger
}
