// Package report derives read-only views from the bill collection: single
// bill lookups, collection summaries and a fingerprinted Markdown digest of
// recent changes that can also be rendered to HTML.
package report
