// Package main hosts the pricewatch service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, observation
//     intake, product summaries, wishlist management, scan triggering and
//     alert queries. Inbound observations are validated and handed to the
//     pipeline.
//   - Pipeline: internal/pipeline serializes work per product key,
//     deduplicates readings against the bounded history ledger, recomputes
//     stats, evaluates alert rules and delivers notifications best-effort.
//   - Scan: internal/scan walks the wishlist on a fixed schedule with a
//     bounded worker pool, rate-limited per domain. Static fetches go
//     through Colly; pages that look like unrendered SPA shells are
//     promoted to a Chromedp headless fetch. Raw bodies can be archived
//     content-addressed to local disk or GCS.
//   - Persistence: the store contract has in-memory and Postgres (pgx,
//     JSONB payload) implementations. Alerts can fan out to a Google
//     Pub/Sub topic.
//   - Configuration & plumbing: Viper populates config from env/files
//     (PRICEWATCH_ prefix); zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics.
//
// Run locally: go run ./cmd/pricewatch serve --config config.yaml (or
// rely solely on env overrides). The process reacts to SIGTERM for a
// graceful drain of the scanner and HTTP server.
package main
