// Package store declares the persistence interfaces the services depend
// on — learners, cards, review events, memory states, model parameters —
// together with the shared error taxonomy and the transaction runner.
// Implementations live in internal/platform/postgres; tests substitute
// in-memory fakes.
package store
