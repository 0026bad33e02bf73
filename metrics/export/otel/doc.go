// Package otel publishes authengine counters as OpenTelemetry observable
// counters.
//
// Related counters share one instrument and carry labels from
// internaldefs (authengine_factor_checks_total{factor="totp",result="rejected"}).
// The authenticate latency histogram is published as cumulative
// authengine_authenticate_latency_seconds_bucket{le=...} counts plus a
// _count series. Undelivered notification emails are split by reason. One
// callback reads [authengine.Engine.MetricsSnapshot] per collection; callers
// own the MeterProvider.
package otel
