// Package notify fans tracker results out to observers: the log, a NATS
// JetStream subject with a key-value bucket of latest stages, and the sqlite
// change journal.
package notify
