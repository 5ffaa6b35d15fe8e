package output

import (
	"sync"
)

// FanOutOutput writes every batch to all of its outputs in parallel.
type FanOutOutput struct {
	outputs []Output
}

func NewFanOutOutput(outputs ...Output) *FanOutOutput {
	return &FanOutOutput{
		outputs: outputs,
	}
}

// WriteBatch returns the first error in output order.
func (f *FanOutOutput) WriteBatch(entries [][]byte) error {
	switch len(f.outputs) {
	case 0:
		return nil
	case 1:
		return f.outputs[0].WriteBatch(entries)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(f.outputs))

	for i, out := range f.outputs {
		wg.Add(1)
		go func(idx int, o Output) {
			defer wg.Done()
			errs[idx] = o.WriteBatch(entries)
		}(i, out)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of wrapped outputs.
func (f *FanOutOutput) Len() int {
	return len(f.outputs)
}
