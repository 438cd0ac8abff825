// Package legisinfo reads the Parliament of Canada LEGISinfo bill export and
// turns it into bill observations.
package legisinfo
