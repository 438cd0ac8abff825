// Package lawlib maintains a searchable library of consolidated federal Acts
// and regulations.
//
// The library mirrors the Justice Canada XML repository with go-git and
// indexes each file's identifier and English title in SQLite. Searching is a
// case-insensitive substring match on the title, optionally limited to one
// type.
package lawlib
