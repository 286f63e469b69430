// Package domain defines the entities of the review system: learners,
// cards, the append-only review events, the derived per-card memory
// state, and versioned model parameters. Entities validate themselves on
// construction; everything else about them is decided elsewhere.
package domain
