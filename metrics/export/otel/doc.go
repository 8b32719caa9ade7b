// Package otel publishes goSession engine metrics through an OpenTelemetry
// Meter.
//
// Counters become Int64ObservableCounter instruments. The latency
// histogram is exposed as one cumulative Int64ObservableGauge per bucket
// plus a count gauge. A single callback reads Engine.MetricsSnapshot on
// each collection. The caller owns the MeterProvider.
package otel
