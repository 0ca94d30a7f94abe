// Package middleware provides HTTP middleware for the clipfold application.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path cardinality
//   - Configurable filtering for static files and health checks
package middleware
