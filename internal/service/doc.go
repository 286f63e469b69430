// Package service holds the application services above the stores and
// below the API layer: learner account management and card assignment.
// The review-scheduling core lives in the scheduler subpackage; services
// here handle the surrounding lifecycle, such as creating baseline memory
// state rows when cards are assigned and removing them on revocation.
//
// Services receive their stores and a transaction runner by constructor
// injection and depend only on the interfaces in internal/store, never on
// the postgres implementations.
package service
