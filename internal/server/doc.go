// Package server exposes the recording retrieval engine over HTTP.
//
// The API surface is deliberately thin: a recording listing endpoint with
// date, host, and meeting filters, a synchronous download trigger, and the
// health endpoints orchestrator probes expect. Prometheus metrics are served
// on a dedicated listener (MetricsServer) so operational data never shares a
// port with the query API.
//
// Client errors from the Zoom layer map onto HTTP statuses: authentication
// failures become 401, rate limiting 429, missing recordings 404, malformed
// input 400, and anything else from the provider 502. Error payloads carry a
// stable machine-readable code alongside the message.
package server
