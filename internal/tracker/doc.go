// Package tracker drives the polling loop: it fetches bill observations,
// merges them into the state store, persists the collection and hands the
// resulting changes to a notifier.
//
// A Loop moves through four phases. It starts in INIT, runs a historical
// BACKFILL when the collection is nearly empty (or when forced), and then
// settles into STEADY polling. A transport failure parks it in FAILED_FETCH
// for the configured cooldown before the same step is retried.
package tracker
