// Package otel publishes sellerhub engine metrics through OpenTelemetry.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and a
// set of gauges per histogram bucket, all fed by a single callback that reads
// Engine.MetricsSnapshot on each collection cycle. Callers own the
// MeterProvider and supply the Meter.
package otel
