package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// traceFileName receives graph spans as JSON lines when --debug is set
	traceFileName = "llmflow-trace.jsonl"

	tracerName             = "github.com/dshills/llmflow/pkg/graph"
	tracingShutdownTimeout = 2 * time.Second
)

// startTracing returns a tracer for the editor's graph events and a function
// that flushes and stops it. Without --debug it returns a nil tracer and
// tracing stays off.
func (o *Options) startTracing() (trace.Tracer, func(), error) {
	if !o.Debug {
		return nil, func() {}, nil
	}

	path := filepath.Join(o.ConfigDir, traceFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	logger := o.logger()
	logger.Debug("tracing graph events", zap.String("path", path))

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("trace shutdown failed", zap.Error(err))
		}
		_ = f.Close()
	}
	return tp.Tracer(tracerName), stop, nil
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
