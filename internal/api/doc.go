// Package api adapts HTTP requests to the application services: request
// decoding and validation, learner identity extraction from the JWT
// middleware, and uniform JSON responses. Error-to-status mapping is
// centralized in errors.go so handlers never translate errors ad hoc.
package api
