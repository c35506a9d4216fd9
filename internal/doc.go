// Package internal holds small concurrency primitives shared by the
// worker runtime and pool supervisor: a cancelable periodic task
// runner (TimerTask), a shutdown-signal channel type (DoneChan), and a
// bounded slot supervisor (Slots) used to keep a target number of
// worker goroutines alive.
package internal
