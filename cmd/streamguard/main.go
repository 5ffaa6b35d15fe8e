package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"streamguard/pkg/config"
	"streamguard/pkg/control"
	"streamguard/pkg/engine"
	"streamguard/pkg/ingest"
	"streamguard/pkg/output"
	"streamguard/pkg/scan"
)

const version = "0.2.0"

// Exit codes for -check mode.
const (
	exitClean      = 0
	exitSuspicious = 1
	exitError      = 2
)

func main() {
	// Basic options
	configPath := flag.String("config", "", "Path to YAML config file")

	// Guard options (override the config file)
	forbidden := flag.String("forbidden", "", "Forbidden bytes, e.g. \"0x00,0x0a\" (default from config)")
	marker := flag.String("marker", "", "Marker byte whose repetition is suspicious (default from config)")

	// Check mode
	check := flag.Bool("check", false, "Scan stdin as one stream, print the verdict and exit")
	chunk := flag.Int("chunk", ingest.DefaultChunkSize, "Read size for -check")

	// Logging options
	logLevel := flag.String("log-level", "", "Log level (trace, debug, info, warn, error, fatal)")
	prettyLogs := flag.Bool("pretty", false, "Enable pretty logging output")

	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("streamguard version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
	if *forbidden != "" {
		cfg.Guard.Forbidden = *forbidden
	}
	if *marker != "" {
		cfg.Guard.Marker = *marker
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *prettyLogs {
		cfg.Log.Pretty = true
	}

	setupLogging(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if *check {
		os.Exit(runCheck(cfg, os.Stdin, os.Stdout, *chunk))
	}
	serve(cfg)
}

// newScanner builds the configured guard scanner. cfg must already be validated.
func newScanner(cfg *config.Config) (*scan.Scanner, error) {
	forbidden, err := cfg.Guard.ForbiddenBytes()
	if err != nil {
		return nil, err
	}
	marker, err := cfg.Guard.MarkerByte()
	if err != nil {
		return nil, err
	}
	return scan.NewScannerWithMarker(scan.BuildForbiddenSet(forbidden), marker)
}

func runCheck(cfg *config.Config, in io.Reader, out io.Writer, chunk int) int {
	sc, err := newScanner(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build scanner")
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	suspicious, n, err := ingest.CheckReader(ctx, in, sc, chunk)
	if err != nil {
		log.Error().Err(err).Int64("bytes", n).Msg("Check failed")
		return exitError
	}
	if suspicious {
		fmt.Fprintf(out, "suspicious (after %d bytes)\n", n)
		return exitSuspicious
	}
	fmt.Fprintf(out, "clean (%d bytes)\n", n)
	return exitClean
}

// gateway holds the serve-mode components wired together.
type gateway struct {
	buffer   *engine.RingBuffer
	chain    *engine.ProcessorChain
	tcp      *ingest.TCPIngestor
	udp      *ingest.UDPIngestor
	pipeline *engine.Pipeline
}

func newGateway(cfg *config.Config, out output.Output) (*gateway, error) {
	buffer, err := engine.NewRingBuffer(cfg.Server.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}

	// Initial chain: the configured guard. The watcher replaces it when a manifest exists.
	var processors []engine.Processor
	var guard *ingest.Guard
	if cfg.Guard.Enabled {
		sc, err := newScanner(cfg)
		if err != nil {
			return nil, fmt.Errorf("build guard: %w", err)
		}
		guard = &ingest.Guard{Set: sc.Set(), Marker: sc.Marker()}

		proc, err := engine.NewGuardProcessor(engine.GuardConfig{
			Name:      "default_guard",
			Forbidden: sc.Set().Bytes(),
			Marker:    sc.Marker(),
		})
		if err != nil {
			return nil, fmt.Errorf("build guard processor: %w", err)
		}
		processors = append(processors, proc)

		log.Info().
			Hex("forbidden", sc.Set().Bytes()).
			Str("marker", string(sc.Marker())).
			Msg("Guard enabled")
	}
	chain := engine.NewProcessorChain(processors...)

	// One sink for both ingestors: the ring buffer takes a single writer.
	sink := ingest.NewSink(buffer)

	return &gateway{
		buffer:   buffer,
		chain:    chain,
		tcp:      ingest.NewTCPIngestor(fmt.Sprintf(":%d", cfg.Server.TCPPort), sink).WithGuard(guard),
		udp:      ingest.NewUDPIngestor(fmt.Sprintf(":%d", cfg.Server.UDPPort), sink).WithGuard(guard),
		pipeline: engine.NewPipeline(buffer, chain, out),
	}, nil
}

func serve(cfg *config.Config) {
	log.Info().Str("version", version).Msg("Initializing streamguard")

	gw, err := newGateway(cfg, output.NewConsoleOutput())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build gateway")
	}
	buffer, tcpIngestor, udpIngestor, pipeline := gw.buffer, gw.tcp, gw.udp, gw.pipeline

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline.Start(ctx)

	if cfg.Redis.Enabled {
		watcher := control.NewWatcher(control.Options{
			Addr:      cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			ConfigKey: cfg.Redis.ConfigKey,
			Channel:   cfg.Redis.Channel,
		}, pipeline)
		defer watcher.Close()

		if err := watcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable, running with static config")
		}
	}

	go func() {
		if err := tcpIngestor.Start(); err != nil {
			log.Fatal().Err(err).Msg("TCP ingestor died")
		}
	}()

	go func() {
		if err := udpIngestor.Start(); err != nil {
			log.Fatal().Err(err).Msg("UDP ingestor died")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	log.Info().
		Int("tcp_port", cfg.Server.TCPPort).
		Int("udp_port", cfg.Server.UDPPort).
		Uint64("buffer_size", cfg.Server.BufferSize).
		Msg("streamguard running")

	<-sigChan
	log.Info().Msg("Shutting down...")

	_ = tcpIngestor.Close()
	_ = udpIngestor.Close()
	cancel()
	time.Sleep(1 * time.Second) // Give workers time to flush

	stats := pipeline.Stats()
	log.Info().
		Uint64("processed", stats.Processed).
		Uint64("dropped", stats.Dropped).
		Uint64("bypassed", stats.Bypassed).
		Uint64("rejected_tcp", tcpIngestor.Rejected()).
		Uint64("rejected_udp", udpIngestor.Rejected()).
		Uint64("buffer_full", buffer.DroppedCount()).
		Msg("Bye")
}

func setupLogging(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Logs go to stderr; stdout carries accepted entries.
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
