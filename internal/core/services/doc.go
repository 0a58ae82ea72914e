// Package services implements the driving port interfaces.
// Services hold the ingestion and retrieval logic and orchestrate
// calls to driven ports (adapters).
//
// Request-scoped operations take their *zap.Logger from the caller
// so log lines land in that request's trace.
package services
