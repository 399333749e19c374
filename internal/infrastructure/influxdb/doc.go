// Package influxdb provides time-series telemetry for Wavelink.
//
// Refresh outcomes, player state observations, and dispatch results are
// written to InfluxDB for trending and troubleshooting. Writes are
// non-blocking and batched; a failed or disabled InfluxDB connection
// never blocks the polling or dispatch paths.
package influxdb
