// Package task runs the scheduler's maintenance jobs — cache rebuilds and
// parameter optimization — in the background. Tasks are persisted before
// they are queued, so submitted work survives restarts: on startup the
// runner requeues pending rows and resets rows left in processing by a
// crash. A periodic monitor does the same for tasks stuck in processing
// past a configured age.
package task
