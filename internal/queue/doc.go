// Package queue implements the per-teacher daily event queue behind the
// classboard view: chain construction from day snapshots, gap/duration
// validation, cascading mutations under locked or time-respecting policies,
// start-time optimisation, commission math, day-wide shifts and stats
// aggregation.
//
// Everything in this package is pure computation. Callers hand in a
// snapshot, get back a new chain (or a typed failure) and decide what to
// persist; serialising concurrent edits to the same teacher-day is the
// caller's job.
package queue
