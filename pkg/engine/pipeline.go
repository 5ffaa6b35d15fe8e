package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"streamguard/pkg/output"
)

const (
	defaultBatchSize = 100
	// Above this buffer usage the worker skips the chain so the buffer can drain.
	bypassThreshold = 0.80
)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Processed uint64 // entries that went through the chain
	Dropped   uint64 // entries rejected by a processor
	Bypassed  uint64 // entries forwarded without processing (fail-open)
	Errors    uint64 // processor errors
}

// Pipeline connects the Ingest Buffer -> ProcessorChain -> Output.
type Pipeline struct {
	buffer    *RingBuffer
	chain     atomic.Pointer[ProcessorChain] // Hot-swappable chain
	output    atomic.Value                   // Hot-swappable output (always *output.FanOutOutput)
	batchSize atomic.Int64

	workers int
	logger  zerolog.Logger

	processed atomic.Uint64
	dropped   atomic.Uint64
	bypassed  atomic.Uint64
	errors    atomic.Uint64
}

func NewPipeline(buf *RingBuffer, chain *ProcessorChain, out output.Output) *Pipeline {
	p := &Pipeline{
		buffer:  buf,
		workers: 1, // single consumer keeps entries ordered
		logger:  log.With().Str("component", "pipeline").Logger(),
	}
	p.batchSize.Store(defaultBatchSize)
	p.chain.Store(chain)

	// atomic.Value must always store the same concrete type.
	p.output.Store(output.NewFanOutOutput(out))

	return p
}

// UpdateChain hot-swaps the processor chain safely.
func (p *Pipeline) UpdateChain(chain *ProcessorChain) {
	p.chain.Store(chain)
	p.logger.Info().Strs("processors", chain.Names()).Msg("Processor chain hot-swapped")
}

// UpdateOutput hot-swaps the output provider safely.
func (p *Pipeline) UpdateOutput(out output.Output) {
	fanOut, ok := out.(*output.FanOutOutput)
	if !ok {
		fanOut = output.NewFanOutOutput(out)
	}
	p.output.Store(fanOut)
	p.logger.Info().Msg("Output provider hot-swapped")
}

// UpdateBatchSize changes the flush threshold. Values below 1 fall back to the default.
func (p *Pipeline) UpdateBatchSize(size int64) {
	if size < 1 {
		size = defaultBatchSize
	}
	p.batchSize.Store(size)
	p.logger.Debug().Int64("batch_size", size).Msg("Batch size updated")
}

// Chain returns the active processor chain.
func (p *Pipeline) Chain() *ProcessorChain {
	return p.chain.Load()
}

// BatchSize returns the active flush threshold.
func (p *Pipeline) BatchSize() int64 {
	return p.batchSize.Load()
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Bypassed:  p.bypassed.Load(),
		Errors:    p.errors.Load(),
	}
}

func (p *Pipeline) Start(ctx context.Context) {
	p.logger.Info().Int("workers", p.workers).Msg("Starting processing pipeline")
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	batch := make([][]byte, 0, p.batchSize.Load())
	pCtx := &ProcessingContext{Context: ctx, Logger: p.logger}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			currentOutput := p.output.Load().(output.Output)
			if err := currentOutput.WriteBatch(batch); err != nil {
				p.logger.Error().Err(err).Int("entries", len(batch)).Msg("Output error")
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		default:
			item := p.buffer.Pop()
			if item == nil {
				time.Sleep(1 * time.Millisecond) // TODO: Replace with sync.Cond
				continue
			}

			// Fail-open: if the buffer is nearly full, bypass processing to drain quicker.
			usage := p.buffer.Usage()
			capacity := p.buffer.Capacity()

			if float64(usage) > float64(capacity)*bypassThreshold {
				p.bypassed.Add(1)
				batch = append(batch, item)
			} else {
				currentChain := p.chain.Load()
				processed, drop, err := currentChain.Process(pCtx, item)
				if err != nil {
					p.errors.Add(1)
					p.logger.Error().Err(err).Msg("Process error")
					continue
				}
				p.processed.Add(1)
				if drop {
					p.dropped.Add(1)
					p.logger.Debug().Int("size", len(item)).Msg("Entry dropped")
					continue
				}
				batch = append(batch, processed)
			}

			if int64(len(batch)) >= p.batchSize.Load() {
				flush()
			}
		}
	}
}
