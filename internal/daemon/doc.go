// Package daemon wires the tracker components together and runs them as a
// long-lived service: the poll loop, scheduled Gazette scans and law
// library syncs, the query API and configuration reloads.
package daemon
