// Package api hosts the ops HTTP server that runs alongside a crawl.
// Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/keys to derive a request key by hand when replaying a crawl.
package api
