// Package app wires configuration, services, middleware and the HTTP
// server into one runnable application.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from file and environment
//	2. Initialize logging and observability
//	3. Build the service layer
//	4. Assemble the middleware chain and routes
//	5. Configure the HTTP server
//
// The middleware chain runs request ID, real IP, tracing and metrics,
// structured logging, panic recovery and security headers before any
// route. The template fallback wraps the route tree last so it can
// rescue router-level 404s; API routes mark themselves dispatched so
// their 404s stream through untouched.
//
// # Lifecycle
//
// Run serves until the context is cancelled or SIGINT/SIGTERM
// arrives, then drains in-flight requests within the configured
// shutdown timeout. Initialization errors are returned to the caller;
// the package never calls os.Exit.
package app
