// Package prometheus renders sellerhub engine metrics in Prometheus text
// exposition format. Counters are named sellerhub_*_total and the single
// histogram is sellerhub_validate_latency_seconds.
//
// Nothing is registered globally; callers mount [Exporter.Handler].
package prometheus
