// Package events carries task request events between the services that
// need background work done and the task layer that runs it. The
// indirection exists to break what would otherwise be an import cycle:
// the scheduler requests rebuilds, and rebuild tasks call the scheduler.
package events
