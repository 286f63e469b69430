// Package service provides application-level services for managing learners
// and their card assignments.
package service

import "errors"

// Sentinel errors shared by the services in this package. Expected failure
// modes come back as sentinels so callers can branch with errors.Is; the API
// layer maps them onto HTTP status codes.
var (
	// ErrNotOwned means the resource belongs to a different learner than
	// the requester. Maps to 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another learner")
)
