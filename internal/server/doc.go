// Package server implements the static file server: configuration, route
// table population, the accept loop and per-connection request handling.
//
// The implementation is organized into specialized files for configuration,
// logging, routing, connection tracking, rate limiting and connection
// handling to keep the codebase maintainable and testable.
package server
