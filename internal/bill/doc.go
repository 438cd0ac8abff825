// Package bill models a tracked bill: its immutable status snapshots, the
// canonical legislative stage those snapshots resolve to, and the single
// Update mutator that decides whether a fresh observation is a change.
package bill
