// Package prometheus renders goSession engine metrics in the Prometheus
// text exposition format.
//
// The exporter keeps no registry of its own. Mount [Exporter.Handler] on
// the scrape path; every scrape reads one Engine.MetricsSnapshot.
package prometheus
