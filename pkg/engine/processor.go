package engine

// Processor defines the interface for any component that inspects, repairs or rejects entries.
type Processor interface {
	// Process applies logic to the entry.
	// It returns the (potentially modified) entry, a bool indicating if the entry should be DROPPED, and any error.
	// If drop is true, the pipeline stops processing this entry.
	// Implementations should return the input slice unchanged when they have nothing to do.
	Process(ctx *ProcessingContext, entry []byte) ([]byte, bool, error)

	// Name returns the identifier of the processor (for logging).
	Name() string
}
