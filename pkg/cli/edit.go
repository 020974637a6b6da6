package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/tui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const metricsShutdownTimeout = 2 * time.Second

// NewEditCommand creates the edit command
func NewEditCommand(opts *Options) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "edit [workflow]",
		Short: "Edit a workflow in the terminal canvas",
		Long: `Launch the terminal canvas to edit a workflow visually.

If a workflow is given (a path or a name in the workflows directory) it is
loaded into the canvas and Ctrl+s saves next to it. Otherwise the canvas
starts with an empty workflow and saves into the workflows directory.

The canvas provides:
- Node palette (a), connect mode (c) and Vim-style moves (h/j/k/l)
- Property panel for the selected node (i to edit, Left/Right to adjust)
- Edge label and style menu (e, d, m)
- Context-sensitive help (press ?)

With --metrics-addr, graph edit counters are served in Prometheus format
at http://<addr>/metrics while the editor runs. With --debug, the log goes
to llmflow.log and every graph edit is traced as a span in
llmflow-trace.jsonl, both in the config directory.

Examples:
  llmflow edit
  llmflow edit research
  llmflow edit ./Research_Flow.json --metrics-addr 127.0.0.1:9464`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			repo, err := opts.repository()
			if err != nil {
				return err
			}

			var path string
			saveDir := repo.Dir()
			if len(args) > 0 {
				if path, err = resolveWorkflowPath(repo, args[0]); err != nil {
					return fmt.Errorf("%w\n\nCreate it with: llmflow new %s", err, args[0])
				}
				saveDir = filepath.Dir(path)
			}

			providers, err := opts.providers(ctx)
			if err != nil {
				// the editor still works with config providers only
				opts.Logger.Warn("model registry unavailable", zap.Error(err))
				providers = opts.Config.Providers
			}

			tracer, stopTracing, err := opts.startTracing()
			if err != nil {
				return err
			}
			defer stopTracing()

			metrics := prometheus.NewRegistry()
			metrics.MustRegister(collectors.NewGoCollector())
			store := newEditorStore(opts.Logger, metrics, tracer)

			app, err := tui.NewApp(store, providers,
				tui.NewViewport(opts.Config.Editor.ScaleX, opts.Config.Editor.ScaleY),
				tui.WithLogger(opts.Logger),
				tui.WithSaveDir(saveDir))
			if err != nil {
				return fmt.Errorf("failed to initialize editor: %w", err)
			}
			defer func() { _ = app.Close() }()

			if path != "" {
				if err := app.Open(ctx, path); err != nil {
					return fmt.Errorf("failed to load workflow: %w\n\nTip: Run 'llmflow validate %s' for details", err, args[0])
				}
			}

			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, metrics, opts.Logger)
				if err != nil {
					return err
				}
				defer stop()
			}

			if err := app.Run(ctx); err != nil {
				return fmt.Errorf("editor error: %w", err)
			}
			_ = app.Close()

			if path != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nEditing session for '%s' completed\n", store.Name())
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nEditing session completed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while editing")

	return cmd
}

// newEditorStore creates the graph store with log and metrics observers
// attached, plus a trace observer when tracer is set
func newEditorStore(logger *zap.Logger, metrics prometheus.Registerer, tracer trace.Tracer) *graph.Store {
	opts := []graph.Option{
		graph.WithLogger(logger),
		graph.WithObserver(graph.NewLogObserver(logger)),
		graph.WithObserver(graph.NewMetricsObserver(metrics)),
	}
	if tracer != nil {
		opts = append(opts, graph.WithObserver(graph.NewTraceObserver(tracer)))
	}
	return graph.New(nil, opts...)
}

// serveMetrics starts a /metrics endpoint and returns a function that
// stops it
func serveMetrics(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
