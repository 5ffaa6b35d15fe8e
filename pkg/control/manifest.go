package control

import (
	"errors"
	"fmt"

	"streamguard/pkg/engine"
	"streamguard/pkg/output"
	"streamguard/pkg/scan"
)

const defaultBatchSize = 100

type Manifest struct {
	Version   string           `json:"version"`
	Pipelines []PipelineConfig `json:"pipelines"`
}

type PipelineConfig struct {
	Name       string          `json:"name"`
	Processors []ProcessorRule `json:"processors"`
	Outputs    []OutputTarget  `json:"outputs"`
	BatchSize  int             `json:"batch_size"`
}

type ProcessorRule struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Params map[string]string `json:"params"`
}

type OutputTarget struct {
	Type    string            `json:"type"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// BuildProcessor turns one manifest rule into a processor.
//
// guard:    forbidden, marker, path | attribute
// sanitize: forbidden, marker
func BuildProcessor(rule ProcessorRule) (engine.Processor, error) {
	forbidden, err := scan.ParseByteList(rule.Params["forbidden"])
	if err != nil {
		return nil, fmt.Errorf("processor %s: forbidden: %w", rule.ID, err)
	}
	var marker byte
	if m := rule.Params["marker"]; m != "" {
		if marker, err = scan.ParseByte(m); err != nil {
			return nil, fmt.Errorf("processor %s: marker: %w", rule.ID, err)
		}
	}

	switch rule.Type {
	case "guard":
		guard, err := engine.NewGuardProcessor(engine.GuardConfig{
			Name:      rule.ID,
			Forbidden: forbidden,
			Marker:    marker,
			Path:      rule.Params["path"],
			Attribute: rule.Params["attribute"],
		})
		if err != nil {
			return nil, err
		}
		return guard, nil
	case "sanitize":
		return engine.NewSanitizeProcessor(rule.ID, forbidden, marker), nil
	default:
		return nil, fmt.Errorf("processor %s: unknown type %q", rule.ID, rule.Type)
	}
}

// BuildChain builds every rule of cfg. Invalid rules are skipped and reported together in
// the returned error; the chain holds the rules that did build.
func BuildChain(cfg PipelineConfig) (*engine.ProcessorChain, error) {
	var processors []engine.Processor
	var errs []error
	for _, rule := range cfg.Processors {
		proc, err := BuildProcessor(rule)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		processors = append(processors, proc)
	}
	return engine.NewProcessorChain(processors...), errors.Join(errs...)
}

// BuildOutput builds the outputs of cfg behind a fan-out. No outputs means console.
func BuildOutput(cfg PipelineConfig) *output.FanOutOutput {
	var outputs []output.Output
	for _, target := range cfg.Outputs {
		switch target.Type {
		case "console":
			outputs = append(outputs, output.NewConsoleOutput())
		case "http":
			if target.URL != "" {
				outputs = append(outputs, output.NewHTTPOutput(target.URL, target.Headers))
			}
		}
	}
	if len(outputs) == 0 {
		outputs = append(outputs, output.NewConsoleOutput())
	}
	return output.NewFanOutOutput(outputs...)
}

func batchSize(cfg PipelineConfig) int64 {
	if cfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return int64(cfg.BatchSize)
}
