// Package metrics defines the tracker's observability hooks.
//
// Components receive a Recorder and default to NoopRecorder, so metrics cost
// nothing unless the daemon injects a PrometheusRecorder:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	loop := tracker.New(cfg, fetcher, store, notifier, tracker.WithRecorder(rec))
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
