// Package http contains the REST resources and plain handlers exposed
// under /api/v1. Resources follow the capability-interface dispatch in
// internal/rest; the health endpoints are conventional chi handlers.
package http
