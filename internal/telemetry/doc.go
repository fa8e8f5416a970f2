// Package telemetry wraps OpenTelemetry SDK initialization for memflow,
// providing a single place to configure the TracerProvider and
// MeterProvider. When telemetry is disabled, the global providers stay
// noop and no external connection is made.
package telemetry
