// Package clock provides the time sources the game engines run on.
//
// Engines never read wall-clock time or start goroutines directly. Every
// countdown, settle delay and auto-advance is a callback registered through
// a Scheduler, so the same engine code runs against Real time in the CLI and
// against a Virtual clock in tests and scenario replays.
//
// Virtual timers fire in (due time, registration order) order. Registration
// order comes from Seq, a monotonic logical counter, so two timers due at the
// same instant always fire in the order they were scheduled.
package clock
