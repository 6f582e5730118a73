// Package infra groups the adapters behind the core interfaces: the zerolog
// logger, Prometheus and InfluxDB sinks, the MQTT telemetry store and the
// Sentry monitor. Core packages never import infra.
package infra
