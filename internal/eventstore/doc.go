// Package eventstore is the append-only change journal. Every tracker cycle
// and every entity change it produced is recorded as an event so the history
// of what the tracker saw, and when, survives independently of the bill file.
package eventstore
