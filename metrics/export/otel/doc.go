// Package otel binds goIdentity engine metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per flow (register, otp,
// login, password_reset, google_login, profile, access, mail) with an
// "outcome" attribute per engine counter, e.g. goidentity.otp.events
// {outcome="verify_failure"}. Latency histograms are published as cumulative
// gauges on goidentity.latency.bucket keyed by "operation" and "le", with the
// sample count on goidentity.latency.count. A single callback reads
// Engine.MetricsSnapshot on each collection cycle. Callers own the
// MeterProvider.
package otel
