// Package storage holds the file primitives shared by the JSON-backed stores:
// all-or-nothing writes and an advisory lock file guarding them.
package storage
