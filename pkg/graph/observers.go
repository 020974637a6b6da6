package graph

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LogObserver writes each event to a zap logger at debug level
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates a LogObserver. A nil logger discards everything.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger.Named("graph")}
}

// OnGraphEvent logs e
func (l *LogObserver) OnGraphEvent(e Event) {
	fields := []zap.Field{
		zap.String("event", string(e.Kind)),
		zap.Int("nodes", e.NodeCount),
		zap.Int("edges", e.EdgeCount),
	}
	if e.NodeID != "" {
		fields = append(fields, zap.String("node_id", e.NodeID))
	}
	if e.EdgeID != "" {
		fields = append(fields, zap.String("edge_id", e.EdgeID))
	}
	if len(e.RemovedEdges) > 0 {
		fields = append(fields, zap.Strings("removed_edges", e.RemovedEdges))
	}
	l.logger.Debug("graph event", fields...)
}

// MetricsObserver records graph events as Prometheus metrics:
//
//   - llmflow_graph_events_total{kind}: events seen, by kind
//   - llmflow_graph_nodes: current node count
//   - llmflow_graph_edges: current edge count
type MetricsObserver struct {
	events *prometheus.CounterVec
	nodes  prometheus.Gauge
	edges  prometheus.Gauge
}

// NewMetricsObserver creates the metrics and registers them with registry.
// A nil registry uses prometheus.DefaultRegisterer.
func NewMetricsObserver(registry prometheus.Registerer) *MetricsObserver {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &MetricsObserver{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmflow",
			Subsystem: "graph",
			Name:      "events_total",
			Help:      "Graph store mutations by event kind",
		}, []string{"kind"}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmflow",
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Number of nodes in the edited workflow",
		}),
		edges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmflow",
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Number of edges in the edited workflow",
		}),
	}
}

// OnGraphEvent updates the counters and gauges
func (m *MetricsObserver) OnGraphEvent(e Event) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
	m.nodes.Set(float64(e.NodeCount))
	m.edges.Set(float64(e.EdgeCount))
}

// TraceObserver turns each event into an instant OpenTelemetry span named
// after the event kind.
type TraceObserver struct {
	tracer trace.Tracer
}

// NewTraceObserver creates a TraceObserver. A nil tracer uses the global
// provider.
func NewTraceObserver(tracer trace.Tracer) *TraceObserver {
	if tracer == nil {
		tracer = otel.Tracer("github.com/dshills/llmflow/pkg/graph")
	}
	return &TraceObserver{tracer: tracer}
}

// OnGraphEvent records e as a span that starts and ends immediately
func (t *TraceObserver) OnGraphEvent(e Event) {
	_, span := t.tracer.Start(context.Background(), string(e.Kind))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("llmflow.event", string(e.Kind)),
		attribute.Int("llmflow.nodes", e.NodeCount),
		attribute.Int("llmflow.edges", e.EdgeCount),
	}
	if e.NodeID != "" {
		attrs = append(attrs, attribute.String("llmflow.node_id", e.NodeID))
	}
	if e.EdgeID != "" {
		attrs = append(attrs, attribute.String("llmflow.edge_id", e.EdgeID))
	}
	if len(e.RemovedEdges) > 0 {
		attrs = append(attrs, attribute.StringSlice("llmflow.removed_edges", e.RemovedEdges))
	}
	span.SetAttributes(attrs...)
}
