// Package regulation holds flat regulation records published in the Canada
// Gazette and the deduplicating store that keeps them.
//
// Regulations carry no per-item history. A record is identified by its
// registration number (SOR/YYYY-N or SI/YYYY-N) when the notice has one, and
// otherwise by a hash of its normalized title.
package regulation
