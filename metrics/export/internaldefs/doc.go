// Package internaldefs holds the metric names and bucket boundaries shared by
// the Prometheus and OTel exporters, so both publish identical series.
//
// It performs no I/O.
package internaldefs
