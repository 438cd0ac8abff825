// Package git keeps a local mirror of a remote repository up to date.
//
// A Mirror clones on first use and afterwards fetches and fast-forwards the
// tracked branch. A branch that diverged from the remote is hard reset, since
// the mirror never carries local commits.
package git
