// Package state persists the tracked bill collection and merges fresh
// observations into it.
//
// The collection lives in a single JSON document written atomically: a crash
// mid-save leaves the previous document intact. Documents in the legacy flat
// layout (top-level "bills" keyed by bill id, with fields such as "bill_id"
// and "royal_assent_date") are upgraded on load and rewritten in the current
// layout on the next save.
package state
