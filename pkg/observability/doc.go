/*
Package observability provides Prometheus metrics for sluice migrations.

Metrics are fed by domain.LifecycleHooks, so any engine can be observed without changes:

	m := observability.NewMetrics(prometheus.NewRegistry())
	eng := sluice.New(sluice.WithLifecycleHooks(m.Hooks()))

The collected values can be scraped through the registry or written to a node_exporter
textfile with WriteTextfile once the migration finishes.
*/
package observability
