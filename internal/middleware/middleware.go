// Package middleware holds the echo middleware shared across routes: the
// session guard, request ids, request-scoped loggers, New Relic tracing,
// login rate limiting and the global error handler.
package middleware
