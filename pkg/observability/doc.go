/*
Package observability provides lifecycle hooks for monitoring the curator engine.

Metrics records Prometheus counters and histograms for runs, stages and tool calls.
LogHooks emits the same events as structured log lines. Both produce
domain.LifecycleHooks and can be combined with domain.MergeHooks.
*/
package observability
