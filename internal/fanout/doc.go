// Package fanout turns trigger events into notification drafts.
//
// [Orchestrator] holds the pure fan-out rules: which routes or zones to
// classify for a given change and who hears about each conflict. [Service]
// applies trigger events to the local projection and hands fan-out work to a
// [Dispatcher], so the consume loop never waits on it.
package fanout
